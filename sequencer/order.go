package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vocdoni/z-orders/circuits/orderproof"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/storage"
	"github.com/vocdoni/z-orders/validator"
)

// orderProcessor takes pending orders until ctx is canceled. When the queue
// is empty it waits for the next tick.
func (s *Sequencer) orderProcessor(ctx context.Context, worker int) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	log.Debugw("order processor started", "worker", worker)

	for {
		select {
		case <-ctx.Done():
			log.Debugw("order processor stopped", "worker", worker)
			return
		default:
		}

		order, err := s.stg.NextOrder()
		if err != nil {
			if !errors.Is(err, storage.ErrNoMoreElements) {
				log.Errorw(err, "failed to get next order")
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				log.Debugw("order processor stopped", "worker", worker)
				return
			}
			continue
		}

		startTime := time.Now()
		receipt, err := s.ProcessOrder(order)
		if err != nil {
			log.Warnw("failed to process order",
				"orderId", order.ID.String(),
				"error", err.Error())
			continue
		}
		if receipt.Failed() {
			log.Warnw("order validated without proof or signature",
				"orderId", order.ID.String(),
				"error", receipt.Error)
		}
		if err := s.stg.MarkOrderDone(order.ID, receipt); err != nil {
			log.Warnw("failed to mark order as processed",
				"orderId", order.ID.String(),
				"error", err.Error())
			continue
		}
		log.Debugw("order processed",
			"orderId", order.ID.String(),
			"worker", worker,
			"malformed", receipt.Malformed(),
			"duration", time.Since(startTime).String())
	}
}

// ProcessOrder validates the order and builds its receipt. A malformed
// input stream is not an error: the receipt carries the decoding error and
// no bundle. If proving or signing fails the receipt keeps the bundle and
// result and carries that error instead of the proof or signature.
func (s *Sequencer) ProcessOrder(o *storage.Order) (*storage.Receipt, error) {
	if o == nil {
		return nil, fmt.Errorf("order cannot be nil")
	}
	receipt := &storage.Receipt{ID: o.ID}
	defer s.processed.Add(1)

	in, err := validator.DecodeInputs(o.Stream)
	if err != nil {
		s.malformed.Add(1)
		receipt.Error = err.Error()
		receipt.ProcessedAt = time.Now().Unix()
		return receipt, nil
	}
	out := validator.Validate(in)
	bundle := out.Bytes()
	receipt.Bundle = bundle
	receipt.Result = &out.Result
	if out.Result.IsValid {
		s.valid.Add(1)
	}

	if s.prover != nil {
		proof, err := s.prover.Prove(in, out)
		switch {
		case errors.Is(err, orderproof.ErrInputTooLarge):
			log.Debugw("order too large to prove", "orderId", o.ID.String(), "error", err.Error())
		case err != nil:
			return s.failReceipt(receipt, fmt.Errorf("prove order: %w", err)), nil
		default:
			if receipt.Proof, err = orderproof.EncodeProof(proof); err != nil {
				return s.failReceipt(receipt, err), nil
			}
			s.proven.Add(1)
		}
	}

	if s.signer != nil {
		if receipt.Signature, err = s.signer.SignEthereum(bundle); err != nil {
			return s.failReceipt(receipt, fmt.Errorf("sign bundle: %w", err)), nil
		}
	}
	receipt.ProcessedAt = time.Now().Unix()
	return receipt, nil
}

// failReceipt drops the proof and signature of a receipt and records err.
func (s *Sequencer) failReceipt(receipt *storage.Receipt, err error) *storage.Receipt {
	s.failed.Add(1)
	receipt.Proof = nil
	receipt.Signature = nil
	receipt.Error = err.Error()
	receipt.ProcessedAt = time.Now().Unix()
	return receipt
}
