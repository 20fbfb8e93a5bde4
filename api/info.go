package api

import (
	"net/http"

	"github.com/vocdoni/z-orders/circuits"
	"github.com/vocdoni/z-orders/circuits/orderproof"
	"github.com/vocdoni/z-orders/types"
)

// info returns the circuit limits and the sequencer status
// GET /info
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	res := &InfoResponse{
		MaxPayloadSize:   circuits.MaxPayloadSize,
		MaxNullifiers:    circuits.MaxNullifiers,
		PublicValuesSize: types.PublicValuesSize,
		PendingOrders:    a.storage.CountPendingOrders(),
	}
	if a.sequencer != nil {
		if a.sequencer.Signing() {
			res.SequencerAddress = a.sequencer.Address().String()
		}
		res.Proving = a.sequencer.Proving()
		stats := a.sequencer.Stats()
		res.Stats = &stats
	}
	if hashes, err := a.storage.ArtifactHashes(orderproof.CircuitName); err == nil {
		res.ArtifactHashes = hashes[:]
	}
	httpWriteJSON(w, res)
}
