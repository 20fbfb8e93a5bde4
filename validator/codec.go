package validator

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vocdoni/z-orders/types"
)

// Reader decodes the positional inputs of an execution. It exposes one
// statically typed function per expected shape; each of them fails with
// ErrMalformedInput when the stream does not hold a value of that shape.
type Reader struct {
	buf *bytes.Reader
}

// NewReader returns a Reader over the given input stream.
func NewReader(stream []byte) *Reader {
	return &Reader{buf: bytes.NewReader(stream)}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.buf.Len()
}

func (r *Reader) readFull(n int, what string) ([]byte, error) {
	if n > r.buf.Len() {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d left", ErrMalformedInput, what, n, r.buf.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.buf, b); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInput, what, err)
	}
	return b, nil
}

// ReadDigest reads a 32 byte value.
func (r *Reader) ReadDigest() (types.Digest, error) {
	b, err := r.readFull(types.DigestSize, "digest")
	if err != nil {
		return types.Digest{}, err
	}
	return types.DigestFromBytes(b)
}

// ReadOrderCommitment reads the 96 byte OrderCommitment record.
func (r *Reader) ReadOrderCommitment() (types.OrderCommitment, error) {
	b, err := r.readFull(types.OrderCommitmentSize, "order commitment")
	if err != nil {
		return types.OrderCommitment{}, err
	}
	var oc types.OrderCommitment
	copy(oc.Commitment[:], b[0:types.DigestSize])
	copy(oc.Nullifier[:], b[types.DigestSize:2*types.DigestSize])
	copy(oc.BalanceHash[:], b[2*types.DigestSize:])
	return oc, nil
}

// ReadU64 reads a little-endian unsigned 64 bit integer.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.readFull(8, "u64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadBytes reads a length prefixed byte sequence. The length prefix is a
// little-endian u64 and can not exceed the remaining stream.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU64()
	if err != nil {
		return nil, fmt.Errorf("bytes length: %w", err)
	}
	if n > uint64(r.buf.Len()) {
		return nil, fmt.Errorf("%w: byte sequence of %d bytes, %d left", ErrMalformedInput, n, r.buf.Len())
	}
	return r.readFull(int(n), "byte sequence")
}

// ReadNullifierSet reads a count prefixed sequence of 32 byte values. The
// whole set is materialized before returning.
func (r *Reader) ReadNullifierSet() ([]types.Digest, error) {
	n, err := r.ReadU64()
	if err != nil {
		return nil, fmt.Errorf("nullifier set length: %w", err)
	}
	if n > uint64(r.buf.Len()/types.DigestSize) {
		return nil, fmt.Errorf("%w: nullifier set of %d elements, %d bytes left", ErrMalformedInput, n, r.buf.Len())
	}
	set := make([]types.Digest, 0, n)
	for i := uint64(0); i < n; i++ {
		d, err := r.ReadDigest()
		if err != nil {
			return nil, fmt.Errorf("nullifier %d: %w", i, err)
		}
		set = append(set, d)
	}
	return set, nil
}

// ReadBool reads a single byte flag, which must be 0x00 or 0x01.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.readFull(1, "bool")
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool byte 0x%02x", ErrMalformedInput, b[0])
	}
}

// Finish fails if any byte is left unread.
func (r *Reader) Finish() error {
	if r.buf.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedInput, r.buf.Len())
	}
	return nil
}

// Writer encodes values in the layout Reader expects. Hosts use it to build
// the input stream of an execution.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded stream.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteDigest writes a 32 byte value.
func (w *Writer) WriteDigest(d types.Digest) {
	w.buf.Write(d[:])
}

// WriteOrderCommitment writes the 96 byte OrderCommitment record.
func (w *Writer) WriteOrderCommitment(oc types.OrderCommitment) {
	w.WriteDigest(oc.Commitment)
	w.WriteDigest(oc.Nullifier)
	w.WriteDigest(oc.BalanceHash)
}

// WriteU64 writes v as a little-endian unsigned 64 bit integer.
func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteBytes writes b with its u64 length prefix.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteU64(uint64(len(b)))
	w.buf.Write(b)
}

// WriteNullifierSet writes the set with its u64 element count prefix.
func (w *Writer) WriteNullifierSet(set []types.Digest) {
	w.WriteU64(uint64(len(set)))
	for _, d := range set {
		w.WriteDigest(d)
	}
}

// WriteBool writes a flag as a single 0x00 or 0x01 byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}
