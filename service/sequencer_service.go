package service

import (
	"context"
	"fmt"

	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/sequencer"
	"github.com/vocdoni/z-orders/storage"
)

// SequencerService represents a service that validates queued orders in
// the background.
type SequencerService struct {
	Sequencer *sequencer.Sequencer
}

// NewSequencer creates a new sequencer service over the storage.
func NewSequencer(stg *storage.Storage, opts sequencer.Options) (*SequencerService, error) {
	s, err := sequencer.New(stg, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create sequencer: %w", err)
	}
	return &SequencerService{Sequencer: s}, nil
}

// Start begins the order processing service. It returns an error if the
// service is already running.
func (ss *SequencerService) Start(ctx context.Context) error {
	return ss.Sequencer.Start(ctx)
}

// Stop halts the order processing service.
func (ss *SequencerService) Stop() {
	if err := ss.Sequencer.Stop(); err != nil {
		log.Warnw("sequencer service stopped", "error", err)
	}
}
