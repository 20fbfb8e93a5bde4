package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/z-orders/api"
	"github.com/vocdoni/z-orders/circuits"
	"github.com/vocdoni/z-orders/circuits/orderproof"
	"github.com/vocdoni/z-orders/sequencer"
	"github.com/vocdoni/z-orders/storage"
	"github.com/vocdoni/z-orders/types"
	"github.com/vocdoni/z-orders/util"
	"go.vocdoni.io/dvote/db/metadb"
)

func TestAPIService(t *testing.T) {
	c := qt.New(t)

	store := storage.New(metadb.NewTest(t))
	defer store.Close()

	// port 0 lets the OS choose an available port
	apiService := NewAPI(store, nil, "127.0.0.1", 0)
	ctx := context.Background()

	err := apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer apiService.Stop()

	host, port := apiService.HostPort()
	c.Assert(port, qt.Not(qt.Equals), 0)
	res, err := http.Get(fmt.Sprintf("http://%s:%d/ping", host, port))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Body.Close(), qt.IsNil)
	c.Assert(res.StatusCode, qt.Equals, http.StatusOK)

	// stopping and restarting
	apiService.Stop()
	err = apiService.Start(ctx)
	c.Assert(err, qt.IsNil)

	// starting an already running service
	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")
}

func TestSequencerService(t *testing.T) {
	c := qt.New(t)

	store := storage.New(metadb.NewTest(t))
	defer store.Close()

	seqService, err := NewSequencer(store, sequencer.Options{PollInterval: 10 * time.Millisecond})
	c.Assert(err, qt.IsNil)
	c.Assert(seqService.Start(context.Background()), qt.IsNil)
	defer seqService.Stop()

	o, err := store.PushOrder([]byte("not an order"))
	c.Assert(err, qt.IsNil)
	deadline := time.Now().Add(5 * time.Second)
	for store.IsPending(o.ID) {
		if time.Now().After(deadline) {
			c.Fatal("order still pending")
		}
		time.Sleep(10 * time.Millisecond)
	}

	r, err := store.Receipt(o.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Malformed(), qt.IsTrue)
}

func TestLoadProver(t *testing.T) {
	if os.Getenv("RUN_CIRCUIT_TESTS") == "" || os.Getenv("RUN_CIRCUIT_TESTS") == "false" {
		t.Skip("skipping circuit tests...")
	}
	c := qt.New(t)
	prevDir := circuits.BaseDir
	circuits.BaseDir = t.TempDir()
	t.Cleanup(func() { circuits.BaseDir = prevDir })

	store := storage.New(metadb.NewTest(t))
	defer store.Close()

	_, err := store.ArtifactHashes(orderproof.CircuitName)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

	_, err = LoadProver(store, ProverConfig{Timeout: 10 * time.Minute})
	c.Assert(err, qt.IsNil)
	hashes, err := store.ArtifactHashes(orderproof.CircuitName)
	c.Assert(err, qt.IsNil)

	// the second load reuses the recorded keys
	_, err = LoadProver(store, ProverConfig{Timeout: 10 * time.Minute})
	c.Assert(err, qt.IsNil)
	again, err := store.ArtifactHashes(orderproof.CircuitName)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.DeepEquals, hashes)
}

func TestLoadProverPinnedHashes(t *testing.T) {
	c := qt.New(t)
	prevDir := circuits.BaseDir
	t.Cleanup(func() { circuits.BaseDir = prevDir })

	// the serving node caches three artifacts that are not a circuit
	circuits.BaseDir = t.TempDir()
	var hashes [3]types.HexBytes
	for i := range hashes {
		a, err := circuits.StoreArtifact(util.RandomBytes(256))
		c.Assert(err, qt.IsNil)
		hashes[i] = a.Hash
	}
	servingStore := storage.New(metadb.NewTest(t))
	defer servingStore.Close()
	serving := NewAPI(servingStore, nil, "127.0.0.1", 0)
	c.Assert(serving.Start(context.Background()), qt.IsNil)
	defer serving.Stop()
	host, port := serving.HostPort()

	circuits.BaseDir = t.TempDir()
	store := storage.New(metadb.NewTest(t))
	defer store.Close()

	// pinned keys that are neither cached nor downloadable are an error,
	// no setup is run
	_, err := LoadProver(store, ProverConfig{Hashes: hashes, Timeout: 10 * time.Second})
	c.Assert(err, qt.ErrorMatches, "cannot load order circuit artifacts.*")
	_, err = store.ArtifactHashes(orderproof.CircuitName)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

	// with the url they are downloaded, then rejected as a circuit
	_, err = LoadProver(store, ProverConfig{
		Hashes:       hashes,
		ArtifactsURL: fmt.Sprintf("http://%s:%d%s", host, port, api.ArtifactsEndpoint),
		Timeout:      10 * time.Second,
	})
	c.Assert(err, qt.ErrorMatches, "failed to read order circuit definition.*")
	for _, h := range hashes {
		c.Assert((&circuits.Artifact{Hash: h}).Load(), qt.IsNil)
	}
	_, err = store.ArtifactHashes(orderproof.CircuitName)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}
