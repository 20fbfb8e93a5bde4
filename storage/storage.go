// storage package keeps the orders submitted to the sequencer and the
// receipts produced once they are validated. It is also a queue: workers
// reserve pending orders, process them and mark them as done. The following
// prefixes are used:
//   - 'o/' for pending orders (queued)
//   - 'or/' for pending order reservations
//   - 'r/' for receipts
//   - 'k/' for circuit artifact hashes
//
// The private input stream of an order is deleted as soon as its receipt is
// stored.
package storage

import (
	"errors"
	"sync"

	"github.com/vocdoni/z-orders/log"
	"go.vocdoni.io/dvote/db"
)

var (
	// Prefixes for the keys in the database.
	orderPrefix            = []byte("o/")
	orderReservationPrefix = []byte("or/")
	receiptPrefix          = []byte("r/")
	artifactHashesPrefix   = []byte("k/")
)

var (
	// ErrNotFound is returned when the requested element does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoMoreElements is returned when the queue has no free elements.
	ErrNoMoreElements = errors.New("no more elements")
)

const (
	// maxKeySize is the maximum size of the key in bytes. It is used to
	// generate the key of the artifacts stored in the database by truncating
	// the hash of the artifact itself.
	maxKeySize = 12
)

// Storage wraps the database with the order queue and receipt operations.
// It is safe for concurrent use.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage", "error", err.Error())
	}
}
