package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// PushOrder stores a new order into the pending orders queue and returns
// it. Order IDs are time ordered, so the queue is processed in submission
// order.
func (s *Storage) PushOrder(stream []byte) (*Order, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate order id: %w", err)
	}
	o := &Order{
		ID:          id,
		Stream:      stream,
		SubmittedAt: time.Now().Unix(),
	}
	if err := s.setArtifact(orderPrefix, id[:], o); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	return o, nil
}

// NextOrder returns the next non-reserved order and reserves it. If no
// orders are available, returns ErrNoMoreElements.
func (s *Storage) NextOrder() (*Order, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	pr := prefixeddb.NewPrefixedReader(s.db, orderPrefix)
	var chosenKey, chosenVal []byte
	if err := pr.Iterate(nil, func(k, v []byte) bool {
		if s.isReserved(orderReservationPrefix, k) {
			return true
		}
		chosenKey = append([]byte{}, k...)
		chosenVal = append([]byte{}, v...)
		return false
	}); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if chosenVal == nil {
		return nil, ErrNoMoreElements
	}

	var o Order
	if err := decodeArtifact(chosenVal, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if err := s.setReservation(orderReservationPrefix, chosenKey); err != nil {
		log.Warnw("failed to reserve order", "orderId", o.ID.String(), "error", err.Error())
		return nil, ErrNoMoreElements
	}
	return &o, nil
}

// MarkOrderDone is called after an order has been processed. It removes the
// order and its reservation and stores the receipt, in a single
// transaction.
func (s *Storage) MarkOrderDone(id uuid.UUID, r *Receipt) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if !s.hasArtifact(orderPrefix, id[:]) {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	val, err := encodeArtifact(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	tx := s.db.WriteTx()
	if err := prefixeddb.NewPrefixedWriteTx(tx, orderReservationPrefix).Delete(id[:]); err != nil {
		tx.Discard()
		return fmt.Errorf("delete reservation: %w", err)
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, orderPrefix).Delete(id[:]); err != nil {
		tx.Discard()
		return fmt.Errorf("delete pending order: %w", err)
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, receiptPrefix).Set(id[:], val); err != nil {
		tx.Discard()
		return fmt.Errorf("store receipt: %w", err)
	}
	return tx.Commit()
}

// Receipt returns the receipt of a processed order, or ErrNotFound.
func (s *Storage) Receipt(id uuid.UUID) (*Receipt, error) {
	r := &Receipt{}
	if err := s.getArtifact(receiptPrefix, id[:], r); err != nil {
		return nil, err
	}
	return r, nil
}

// IsPending reports whether the order is still waiting to be processed.
func (s *Storage) IsPending(id uuid.UUID) bool {
	return s.hasArtifact(orderPrefix, id[:])
}

// CountPendingOrders returns the number of orders waiting to be processed,
// reserved or not.
func (s *Storage) CountPendingOrders() int {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	rd := prefixeddb.NewPrefixedReader(s.db, orderPrefix)
	count := 0
	if err := rd.Iterate(nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		log.Warnw("failed to count pending orders", "error", err.Error())
	}
	return count
}

// SetArtifactHashes stores the artifact hashes of the named circuit.
func (s *Storage) SetArtifactHashes(circuit string, hashes [3]types.HexBytes) error {
	return s.setArtifact(artifactHashesPrefix, hashKey([]byte(circuit)), &artifactHashes{
		CircuitDefinition: hashes[0],
		ProvingKey:        hashes[1],
		VerifyingKey:      hashes[2],
	})
}

// ArtifactHashes returns the artifact hashes of the named circuit, or
// ErrNotFound if they were never stored.
func (s *Storage) ArtifactHashes(circuit string) ([3]types.HexBytes, error) {
	var h artifactHashes
	if err := s.getArtifact(artifactHashesPrefix, hashKey([]byte(circuit)), &h); err != nil {
		if errors.Is(err, ErrNotFound) {
			return [3]types.HexBytes{}, ErrNotFound
		}
		return [3]types.HexBytes{}, fmt.Errorf("decode artifact hashes: %w", err)
	}
	return [3]types.HexBytes{h.CircuitDefinition, h.ProvingKey, h.VerifyingKey}, nil
}
