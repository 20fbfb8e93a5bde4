package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vocdoni/z-orders/circuits/orderproof"
	"github.com/vocdoni/z-orders/config"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/storage"
	"github.com/vocdoni/z-orders/types"
)

// ProverConfig selects where the order proving keys come from.
type ProverConfig struct {
	// Hashes pins the artifacts to use. When set they must be cached or
	// downloadable from ArtifactsURL, and no new setup is run.
	Hashes [3]types.HexBytes
	// ArtifactsURL is the base URL missing artifacts are downloaded from,
	// usually the /artifacts endpoint of another node.
	ArtifactsURL string
	// Timeout bounds the download or setup. Defaults to
	// config.DefaultSetupTimeout.
	Timeout time.Duration
}

func (pc *ProverConfig) pinned() bool {
	return len(pc.Hashes[0]) > 0 && len(pc.Hashes[1]) > 0 && len(pc.Hashes[2]) > 0
}

// LoadProver returns the order prover. Pinned hashes are loaded or
// downloaded; otherwise it reuses the keys whose hashes are recorded in
// storage, or runs a new setup. The hashes in use are recorded in storage.
func LoadProver(stg *storage.Storage, conf ProverConfig) (*orderproof.Prover, error) {
	if conf.Timeout == 0 {
		conf.Timeout = config.DefaultSetupTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), conf.Timeout)
	defer cancel()

	hashes, err := stg.ArtifactHashes(orderproof.CircuitName)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to read artifact hashes: %w", err)
	}

	var prover *orderproof.Prover
	var newHashes [3]types.HexBytes
	if conf.pinned() {
		p, ca, err := orderproof.Load(ctx, conf.Hashes, conf.ArtifactsURL)
		if err != nil {
			return nil, err
		}
		prover, newHashes = p, ca.Hashes()
	} else {
		p, ca, err := orderproof.LoadOrSetup(ctx, hashes, conf.ArtifactsURL)
		if err != nil {
			return nil, err
		}
		prover, newHashes = p, ca.Hashes()
	}

	if !sameHashes(newHashes, hashes) {
		if err := stg.SetArtifactHashes(orderproof.CircuitName, newHashes); err != nil {
			return nil, fmt.Errorf("failed to store artifact hashes: %w", err)
		}
	}
	log.Infow("order prover ready",
		"circuit", newHashes[0].String(),
		"provingKey", newHashes[1].String(),
		"verifyingKey", newHashes[2].String())
	return prover, nil
}

func sameHashes(a, b [3]types.HexBytes) bool {
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
