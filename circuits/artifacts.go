package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/types"
)

// ErrArtifactNotFound is returned when an artifact is not in the local cache.
var ErrArtifactNotFound = errors.New("artifact not found in local cache")

// CheckHashes determines if the content of the artifacts is checked against
// their hash when loaded or downloaded. Set Z_ORDERS_CHECK_HASHES to false or
// 0 to disable it.
var CheckHashes = true

// BaseDir is the local artifact cache. Artifacts are stored there by the hex
// encoded sha256 of their content. Defaults to Z_ORDERS_ARTIFACTS_DIR or
// ~/.cache/z-orders-artifacts.
var BaseDir string

func init() {
	if v := strings.ToLower(os.Getenv("Z_ORDERS_CHECK_HASHES")); v == "false" || v == "0" {
		CheckHashes = false
	}
	if dir := os.Getenv("Z_ORDERS_ARTIFACTS_DIR"); dir != "" {
		BaseDir = dir
		return
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		log.Warnf("unable to access user home directory, using temporary directory: %v", err)
		BaseDir = filepath.Join(os.TempDir(), "z-orders-artifacts")
		return
	}
	BaseDir = filepath.Join(home, ".cache", "z-orders-artifacts")
}

// Artifact is a content addressed blob (a constraint system, a proving key
// or a verifying key). It can be loaded from the local cache, downloaded
// from RemoteURL, or stored after being generated locally.
type Artifact struct {
	RemoteURL string
	Hash      types.HexBytes
	Content   []byte
}

// Load reads the artifact from the local cache if it is not loaded yet.
// It returns ErrArtifactNotFound if the cache has no file for its hash.
func (a *Artifact) Load() error {
	if len(a.Content) != 0 {
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := load(a.Hash)
	if err != nil {
		return err
	}
	a.Content = content
	return nil
}

// Download fetches the artifact from RemoteURL into the local cache and
// loads it. The downloaded content must match the artifact hash.
func (a *Artifact) Download(ctx context.Context) error {
	if a.RemoteURL == "" {
		return fmt.Errorf("artifact not loaded and remote url not provided")
	}
	if err := download(ctx, a.Hash, a.RemoteURL); err != nil {
		return err
	}
	return a.Load()
}

// LoadOrDownload loads the artifact from the cache and falls back to
// downloading it when it is not cached and a RemoteURL is set.
func (a *Artifact) LoadOrDownload(ctx context.Context) error {
	err := a.Load()
	if errors.Is(err, ErrArtifactNotFound) && a.RemoteURL != "" {
		log.Infow("downloading artifact", "url", a.RemoteURL, "hash", a.Hash.String())
		return a.Download(ctx)
	}
	return err
}

// StoreArtifact writes content into the local cache and returns the
// artifact pointing to it.
func StoreArtifact(content []byte) (*Artifact, error) {
	hash := sha256.Sum256(content)
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(hash[:]))
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("rename artifact: %w", err)
	}
	return &Artifact{Hash: hash[:], Content: content}, nil
}

// CircuitArtifacts groups the artifacts of a zkSNARK circuit: its
// constraint system, proving key and verifying key.
type CircuitArtifacts struct {
	CircuitDefinition *Artifact
	ProvingKey        *Artifact
	VerifyingKey      *Artifact
}

// NewCircuitArtifacts returns the artifacts with the given hashes, in the
// order returned by Hashes. If baseURL is not empty, every artifact can be
// downloaded from baseURL followed by its hex encoded hash.
func NewCircuitArtifacts(hashes [3]types.HexBytes, baseURL string) (*CircuitArtifacts, error) {
	var artifacts [3]*Artifact
	for i, h := range hashes {
		if len(h) == 0 {
			return nil, fmt.Errorf("artifact hash %d not provided", i)
		}
		artifacts[i] = &Artifact{Hash: h}
		if baseURL == "" {
			continue
		}
		remoteURL, err := url.JoinPath(baseURL, h.String())
		if err != nil {
			return nil, fmt.Errorf("invalid artifacts url: %w", err)
		}
		artifacts[i].RemoteURL = remoteURL
	}
	return &CircuitArtifacts{
		CircuitDefinition: artifacts[0],
		ProvingKey:        artifacts[1],
		VerifyingKey:      artifacts[2],
	}, nil
}

func (ca *CircuitArtifacts) all() map[string]*Artifact {
	return map[string]*Artifact{
		"circuit definition": ca.CircuitDefinition,
		"proving key":        ca.ProvingKey,
		"verifying key":      ca.VerifyingKey,
	}
}

// LoadAll loads every artifact from the cache, downloading the missing ones
// when they have a remote URL.
func (ca *CircuitArtifacts) LoadAll(ctx context.Context) error {
	for name, a := range ca.all() {
		if a == nil {
			return fmt.Errorf("%s not set", name)
		}
		if err := a.LoadOrDownload(ctx); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Hashes returns the hashes of the circuit definition, proving key and
// verifying key, in this order.
func (ca *CircuitArtifacts) Hashes() [3]types.HexBytes {
	var h [3]types.HexBytes
	for i, a := range []*Artifact{ca.CircuitDefinition, ca.ProvingKey, ca.VerifyingKey} {
		if a != nil {
			h[i] = a.Hash
		}
	}
	return h
}

func artifactPath(hash []byte) string {
	return filepath.Join(BaseDir, hex.EncodeToString(hash))
}

func checkHash(content, hash []byte) error {
	if !CheckHashes {
		return nil
	}
	if got := sha256.Sum256(content); !bytes.Equal(got[:], hash) {
		return fmt.Errorf("hash mismatch: expected %x, got %x", hash, got)
	}
	return nil
}

func load(hash []byte) ([]byte, error) {
	content, err := os.ReadFile(artifactPath(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %x", ErrArtifactNotFound, hash)
		}
		return nil, fmt.Errorf("read artifact %x: %w", hash, err)
	}
	if err := checkHash(content, hash); err != nil {
		return nil, err
	}
	return content, nil
}

func download(ctx context.Context, hash []byte, fileURL string) error {
	if _, err := url.Parse(fileURL); err != nil {
		return fmt.Errorf("invalid artifact url: %w", err)
	}
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("create artifact request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download artifact: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("download artifact %s: http status %d", fileURL, res.StatusCode)
	}

	path := artifactPath(hash)
	partial := path + ".partial"
	fd, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(fd, hasher), res.Body)
	if cerr := fd.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partial)
		return fmt.Errorf("write artifact file: %w", err)
	}
	if CheckHashes && !bytes.Equal(hasher.Sum(nil), hash) {
		os.Remove(partial)
		return fmt.Errorf("hash mismatch: expected %x, got %x", hash, hasher.Sum(nil))
	}
	log.Debugw("artifact downloaded", "url", fileURL, "bytes", n)
	return os.Rename(partial, path)
}
