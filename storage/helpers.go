package storage

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

func hashKey(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:maxKeySize]
}

// setArtifact encodes and stores an artifact under prefix/key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	val, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, val); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact decodes the artifact stored under prefix/key into out. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	val, err := rd.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(val, out)
}

// hasArtifact reports whether prefix/key exists.
func (s *Storage) hasArtifact(prefix, key []byte) bool {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	_, err := rd.Get(key)
	return err == nil
}

// deleteArtifact removes prefix/key. It returns ErrNotFound if the key does
// not exist.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	if !s.hasArtifact(prefix, key) {
		return ErrNotFound
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// listArtifacts returns a copy of every key under prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	var keys [][]byte
	if err := rd.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, bytes.Clone(k))
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}

// reservation is the value stored for a reserved queue element.
type reservation struct {
	Timestamp int64 `cbor:"1,keyasint"`
}

func (s *Storage) isReserved(prefix, key []byte) bool {
	return s.hasArtifact(prefix, key)
}

func (s *Storage) setReservation(prefix, key []byte) error {
	return s.setArtifact(prefix, key, &reservation{Timestamp: time.Now().Unix()})
}

// ReleaseReservations drops every order reservation. It is meant to be
// called on startup, so orders reserved by a previous run that did not
// finish them are processed again.
func (s *Storage) ReleaseReservations() error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	keys, err := s.listArtifacts(orderReservationPrefix)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), orderReservationPrefix)
	for _, k := range keys {
		if err := wTx.Delete(k); err != nil {
			wTx.Discard()
			return fmt.Errorf("delete reservation: %w", err)
		}
	}
	return wTx.Commit()
}
