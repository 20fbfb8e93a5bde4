package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/consensys/gnark/logger"
	flag "github.com/spf13/pflag"
	"github.com/vocdoni/z-orders/circuits"
	"github.com/vocdoni/z-orders/config"
	"github.com/vocdoni/z-orders/crypto/ethereum"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/sequencer"
	"github.com/vocdoni/z-orders/service"
	"github.com/vocdoni/z-orders/storage"
	"github.com/vocdoni/z-orders/types"
	"github.com/vocdoni/z-orders/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	host := flag.String("host", config.DefaultHost, "API listen address")
	port := flag.Int("port", config.DefaultPort, "API port")
	dataDir := flag.String("datadir", config.DefaultDataDir(), "directory for the order database")
	logLevel := flag.String("log.level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	logOutput := flag.String("log.output", config.DefaultLogOutput, "log output (stdout, stderr or a file path)")
	workers := flag.Int("workers", sequencer.DefaultWorkers, "number of orders validated concurrently")
	prove := flag.Bool("prove", false, "generate a Groth16 proof for every validated order")
	privKey := flag.String("privkey", "", "hex private key used to sign receipts, a random one if empty")
	artifacts := flag.String("artifacts", circuits.BaseDir, "directory for the circuit artifacts")
	artifactsURL := flag.String("artifacts.url", "",
		"base url to download missing circuit artifacts from, such as http://node:9090/artifacts")
	artifactHashes := flag.StringSlice("artifacts.hashes", nil,
		"circuit definition, proving key and verifying key hashes to use instead of running a setup")
	flag.Parse()

	log.Init(*logLevel, *logOutput, nil)
	circuits.BaseDir = *artifacts

	database, err := metadb.New(db.TypePebble, filepath.Join(*dataDir, "orders"))
	if err != nil {
		log.Fatal(err)
	}
	stg := storage.New(database)
	defer stg.Close()

	signer := ethereum.NewSignKeys()
	if *privKey != "" {
		err = signer.AddHexKey(*privKey)
	} else {
		err = signer.Generate()
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("sequencer signing key loaded", "address", signer.AddressString())

	opts := sequencer.Options{
		Workers: *workers,
		Signer:  signer,
	}
	if *prove {
		logger.Set(*log.Logger())
		proverConf := service.ProverConfig{ArtifactsURL: *artifactsURL}
		if proverConf.Hashes, err = parseArtifactHashes(*artifactHashes); err != nil {
			log.Fatal(err)
		}
		opts.Prover, err = service.LoadProver(stg, proverConf)
		if err != nil {
			log.Fatal(err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	seqService, err := service.NewSequencer(stg, opts)
	if err != nil {
		log.Fatal(err)
	}
	if err := seqService.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer seqService.Stop()

	apiService := service.NewAPI(stg, seqService.Sequencer, *host, *port)
	if err := apiService.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer apiService.Stop()

	h, p := apiService.HostPort()
	log.Infow("z-orders running", "host", h, "port", p, "workers", *workers, "prove", *prove)
	<-ctx.Done()
	log.Info("shutting down")
}

// parseArtifactHashes parses the three hex hashes of --artifacts.hashes.
func parseArtifactHashes(values []string) ([3]types.HexBytes, error) {
	var hashes [3]types.HexBytes
	if len(values) == 0 {
		return hashes, nil
	}
	if len(values) != len(hashes) {
		return hashes, fmt.Errorf("expected %d artifact hashes, got %d", len(hashes), len(values))
	}
	for i, v := range values {
		h, err := hex.DecodeString(util.TrimHex(v))
		if err != nil || len(h) != types.DigestSize {
			return hashes, fmt.Errorf("invalid artifact hash %q", v)
		}
		hashes[i] = h
	}
	return hashes, nil
}
