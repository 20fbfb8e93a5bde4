package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/z-orders/types"
)

var (
	testKeyPath    = "order.pk"
	testKeyContent = []byte("order proving key content")
)

func testKeyServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, testKeyPath, time.Now(), bytes.NewReader(testKeyContent))
	}))
}

func withTempBaseDir(t *testing.T) {
	prev := BaseDir
	BaseDir = t.TempDir()
	t.Cleanup(func() { BaseDir = prev })
}

func TestArtifactDownloadAndLoad(t *testing.T) {
	c := qt.New(t)
	withTempBaseDir(t)

	server := testKeyServer()
	defer server.Close()
	hash := sha256.Sum256(testKeyContent)
	remoteURL, err := url.JoinPath(server.URL, testKeyPath)
	c.Assert(err, qt.IsNil)

	a := &Artifact{RemoteURL: remoteURL, Hash: hash[:]}
	c.Assert(a.Load(), qt.ErrorIs, ErrArtifactNotFound)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Assert(a.LoadOrDownload(ctx), qt.IsNil)
	c.Assert(a.Content, qt.DeepEquals, testKeyContent)

	// cached now, a second artifact with the same hash loads without network
	cached := &Artifact{Hash: hash[:]}
	c.Assert(cached.Load(), qt.IsNil)
	c.Assert(cached.Content, qt.DeepEquals, testKeyContent)
}

func TestArtifactDownloadHashMismatch(t *testing.T) {
	c := qt.New(t)
	withTempBaseDir(t)

	server := testKeyServer()
	defer server.Close()
	remoteURL, err := url.JoinPath(server.URL, testKeyPath)
	c.Assert(err, qt.IsNil)

	wrong := sha256.Sum256([]byte("other content"))
	a := &Artifact{RemoteURL: remoteURL, Hash: wrong[:]}
	c.Assert(a.Download(context.Background()), qt.ErrorMatches, "hash mismatch.*")
	_, err = os.Stat(artifactPath(wrong[:]))
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestStoreArtifact(t *testing.T) {
	c := qt.New(t)
	withTempBaseDir(t)

	a, err := StoreArtifact(testKeyContent)
	c.Assert(err, qt.IsNil)
	expected := sha256.Sum256(testKeyContent)
	c.Assert([]byte(a.Hash), qt.DeepEquals, expected[:])

	ca := &CircuitArtifacts{
		CircuitDefinition: &Artifact{Hash: a.Hash},
		ProvingKey:        &Artifact{Hash: a.Hash},
		VerifyingKey:      &Artifact{Hash: a.Hash},
	}
	c.Assert(ca.LoadAll(context.Background()), qt.IsNil)
	c.Assert(ca.VerifyingKey.Content, qt.DeepEquals, testKeyContent)
	c.Assert(ca.Hashes()[1], qt.DeepEquals, a.Hash)

	// a tampered cache file is rejected
	c.Assert(os.WriteFile(filepath.Join(BaseDir, a.Hash.String()), []byte("tampered"), 0o644), qt.IsNil)
	tampered := &Artifact{Hash: a.Hash}
	c.Assert(tampered.Load(), qt.ErrorMatches, "hash mismatch.*")
}

func TestNewCircuitArtifacts(t *testing.T) {
	c := qt.New(t)
	withTempBaseDir(t)

	server := testKeyServer()
	defer server.Close()
	hash := sha256.Sum256(testKeyContent)
	hashes := [3]types.HexBytes{hash[:], hash[:], hash[:]}

	ca, err := NewCircuitArtifacts(hashes, server.URL+"/artifacts")
	c.Assert(err, qt.IsNil)
	c.Assert(ca.ProvingKey.RemoteURL, qt.Equals, server.URL+"/artifacts/"+hashes[1].String())
	c.Assert(ca.LoadAll(context.Background()), qt.IsNil)
	c.Assert(ca.VerifyingKey.Content, qt.DeepEquals, testKeyContent)
	c.Assert(ca.Hashes(), qt.DeepEquals, hashes)

	ca, err = NewCircuitArtifacts(hashes, "")
	c.Assert(err, qt.IsNil)
	c.Assert(ca.CircuitDefinition.RemoteURL, qt.Equals, "")

	_, err = NewCircuitArtifacts([3]types.HexBytes{hash[:], nil, hash[:]}, "")
	c.Assert(err, qt.ErrorMatches, "artifact hash 1 not provided")
}
