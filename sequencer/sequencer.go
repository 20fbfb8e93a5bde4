// Package sequencer validates the orders queued in storage in the
// background, optionally proving and signing every output bundle.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/z-orders/circuits/orderproof"
	"github.com/vocdoni/z-orders/crypto/ethereum"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWorkers is the number of order workers when none is set.
	DefaultWorkers = 2
	// DefaultPollInterval is how long an idle worker waits before looking
	// for new orders.
	DefaultPollInterval = time.Second
)

// Options configures a Sequencer. Prover and Signer are optional: without a
// prover receipts carry no proof, without a signer they carry no signature.
type Options struct {
	Workers      int
	PollInterval time.Duration
	Prover       *orderproof.Prover
	Signer       *ethereum.SignKeys
}

// Stats are the counters of the orders processed since the sequencer
// started.
type Stats struct {
	Processed uint64 `json:"processed"`
	Valid     uint64 `json:"valid"`
	Malformed uint64 `json:"malformed"`
	Proven    uint64 `json:"proven"`
	Failed    uint64 `json:"failed"`
}

// Sequencer runs a pool of workers that take pending orders from storage,
// validate them and store their receipts.
type Sequencer struct {
	stg          *storage.Storage
	prover       *orderproof.Prover
	signer       *ethereum.SignKeys
	workers      int
	pollInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group

	processed atomic.Uint64
	valid     atomic.Uint64
	malformed atomic.Uint64
	proven    atomic.Uint64
	failed    atomic.Uint64
}

// New creates a new Sequencer instance over the given storage.
func New(stg *storage.Storage, opts Options) (*Sequencer, error) {
	if stg == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("workers must be positive")
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	log.Debugw("sequencer initialized",
		"workers", opts.Workers,
		"prover", opts.Prover != nil,
		"signer", opts.Signer != nil)
	return &Sequencer{
		stg:          stg,
		prover:       opts.Prover,
		signer:       opts.Signer,
		workers:      opts.Workers,
		pollInterval: opts.PollInterval,
	}, nil
}

// Start releases the reservations left by a previous run and starts the
// order workers. They run until Stop is called or ctx is canceled.
func (s *Sequencer) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("sequencer already running")
	}
	if err := s.stg.ReleaseReservations(); err != nil {
		return fmt.Errorf("failed to release order reservations: %w", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		worker := i
		s.group.Go(func() error {
			s.orderProcessor(ctx, worker)
			return nil
		})
	}
	log.Infow("sequencer started", "workers", s.workers, "pending", s.stg.CountPendingOrders())
	return nil
}

// Stop cancels the workers and waits for them to finish the order they are
// processing. It is safe to call Stop multiple times.
func (s *Sequencer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	err := s.group.Wait()
	s.cancel, s.group = nil, nil
	log.Infow("sequencer stopped")
	return err
}

// Address returns the address that signs the receipts, or the zero address
// if receipts are not signed.
func (s *Sequencer) Address() common.Address {
	if s.signer == nil {
		return common.Address{}
	}
	return s.signer.Address()
}

// Signing reports whether receipts are signed.
func (s *Sequencer) Signing() bool {
	return s.signer != nil
}

// Proving reports whether receipts carry a proof.
func (s *Sequencer) Proving() bool {
	return s.prover != nil
}

// Stats returns the processing counters.
func (s *Sequencer) Stats() Stats {
	return Stats{
		Processed: s.processed.Load(),
		Valid:     s.valid.Load(),
		Malformed: s.malformed.Load(),
		Proven:    s.proven.Load(),
		Failed:    s.failed.Load(),
	}
}
