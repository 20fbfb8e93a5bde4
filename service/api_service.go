package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vocdoni/z-orders/api"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/sequencer"
	"github.com/vocdoni/z-orders/storage"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	storage   *storage.Storage
	sequencer *sequencer.Sequencer
	api       *api.API
	mu        sync.Mutex
	host      string
	port      int
}

// NewAPI creates a new APIService instance. The sequencer is optional and
// only used to report its status.
func NewAPI(storage *storage.Storage, seq *sequencer.Sequencer, host string, port int) *APIService {
	return &APIService{
		storage:   storage,
		sequencer: seq,
		host:      host,
		port:      port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(_ context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	a, err := api.New(&api.APIConfig{
		Host:      as.host,
		Port:      as.port,
		Storage:   as.storage,
		Sequencer: as.sequencer,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	return nil
}

// Stop halts the API server. The storage is owned by the caller and is not
// closed.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := as.api.Stop(ctx); err != nil {
		log.Warnw("failed to stop API server", "error", err.Error())
	}
	as.api = nil
}

// HostPort returns the host and port of the API server. Once started with
// port 0, it returns the port chosen by the system.
func (as *APIService) HostPort() (string, int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api != nil {
		if addr, ok := as.api.Addr().(*net.TCPAddr); ok {
			return as.host, addr.Port
		}
	}
	return as.host, as.port
}
