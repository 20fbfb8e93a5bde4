package api

import (
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/z-orders/types"
)

// artifact serves a cached circuit artifact so other nodes can download the
// proving keys instead of running their own setup.
// GET /artifacts/{hash}
func (a *API) artifact(w http.ResponseWriter, r *http.Request) {
	hash, err := hex.DecodeString(chi.URLParam(r, ArtifactURLParam))
	if err != nil || len(hash) != types.DigestSize {
		ErrMalformedArtifactHash.Write(w)
		return
	}
	path := filepath.Join(a.artifactsDir, hex.EncodeToString(hash))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ErrArtifactNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}
