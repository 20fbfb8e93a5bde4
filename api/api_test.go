package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/z-orders/circuits"
	"github.com/vocdoni/z-orders/circuits/orderproof"
	orderprooftest "github.com/vocdoni/z-orders/circuits/test/orderproof"
	"github.com/vocdoni/z-orders/crypto/ethereum"
	"github.com/vocdoni/z-orders/sequencer"
	"github.com/vocdoni/z-orders/storage"
	"github.com/vocdoni/z-orders/types"
	"github.com/vocdoni/z-orders/util"
	"github.com/vocdoni/z-orders/validator"
	"go.vocdoni.io/dvote/db/metadb"
)

type testAPI struct {
	server       *httptest.Server
	stg          *storage.Storage
	seq          *sequencer.Sequencer
	artifactsDir string
}

func newTestAPI(c *qt.C) *testAPI {
	stg := storage.New(metadb.NewTest(c.TB))
	signer := ethereum.NewSignKeys()
	c.Assert(signer.Generate(), qt.IsNil)
	seq, err := sequencer.New(stg, sequencer.Options{Signer: signer})
	c.Assert(err, qt.IsNil)
	artifactsDir := c.TB.TempDir()
	a, err := newAPI(&APIConfig{Storage: stg, Sequencer: seq, ArtifactsDir: artifactsDir})
	c.Assert(err, qt.IsNil)
	server := httptest.NewServer(a.Router())
	c.Cleanup(server.Close)
	return &testAPI{server: server, stg: stg, seq: seq, artifactsDir: artifactsDir}
}

func (ta *testAPI) request(c *qt.C, method, path string, body any) (int, []byte) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		c.Assert(err, qt.IsNil)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ta.server.URL+path, reader)
	c.Assert(err, qt.IsNil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.server.Client().Do(req)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	c.Assert(err, qt.IsNil)
	return resp.StatusCode, buf.Bytes()
}

func decodeError(c *qt.C, data []byte) int {
	var e struct {
		Code int `json:"code"`
	}
	c.Assert(json.Unmarshal(data, &e), qt.IsNil, qt.Commentf("%s", data))
	return e.Code
}

func TestPing(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(c)
	status, _ := ta.request(c, http.MethodGet, PingEndpoint, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
}

func TestValidateOrder(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(c)

	for _, s := range orderprooftest.Scenarios {
		c.Run(string(s), func(c *qt.C) {
			stream := orderprooftest.OrderStreamForTest(s)
			status, data := ta.request(c, http.MethodPost, ValidateOrderEndpoint, &Order{Inputs: stream})
			c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("%s", data))

			res := &ValidationResponse{}
			c.Assert(json.Unmarshal(data, res), qt.IsNil)
			c.Assert(res.Result, qt.Equals, orderprooftest.ExpectedResult(s))
			expected, err := validator.Execute(stream)
			c.Assert(err, qt.IsNil)
			c.Assert([]byte(res.Bundle), qt.DeepEquals, expected)
		})
	}

	c.Run("structured fields", func(c *qt.C) {
		in := orderprooftest.OrderInputsForTest(orderprooftest.ScenarioReplayedNullifier)
		fields := &OrderFields{
			Commitment:     in.Order.Commitment,
			Nullifier:      in.Order.Nullifier,
			BalanceHash:    in.Order.BalanceHash,
			Payload:        in.Payload,
			Balance:        in.Balance,
			RequiredMargin: in.RequiredMargin,
			NullifierSet:   in.NullifierSet,
		}
		status, data := ta.request(c, http.MethodPost, ValidateOrderEndpoint, &Order{Fields: fields})
		c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("%s", data))
		res := &ValidationResponse{}
		c.Assert(json.Unmarshal(data, res), qt.IsNil)
		c.Assert(res.Result, qt.Equals, orderprooftest.ExpectedResult(orderprooftest.ScenarioReplayedNullifier))
		c.Assert(res.Nullifier, qt.Equals, in.Order.Nullifier)
	})

	c.Run("malformed input", func(c *qt.C) {
		stream := orderprooftest.OrderStreamForTest(orderprooftest.ScenarioValid)
		status, data := ta.request(c, http.MethodPost, ValidateOrderEndpoint, &Order{Inputs: stream[:len(stream)-1]})
		c.Assert(status, qt.Equals, http.StatusBadRequest)
		c.Assert(decodeError(c, data), qt.Equals, ErrMalformedOrderInput.Code)
		c.Assert(string(data), qt.Not(qt.Contains), "bundle")
	})

	c.Run("malformed body", func(c *qt.C) {
		status, data := ta.request(c, http.MethodPost, ValidateOrderEndpoint, "not an order")
		c.Assert(status, qt.Equals, http.StatusBadRequest)
		c.Assert(decodeError(c, data), qt.Equals, ErrMalformedBody.Code)
	})

	c.Run("both formats", func(c *qt.C) {
		status, data := ta.request(c, http.MethodPost, ValidateOrderEndpoint, &Order{
			Inputs: []byte{0x01},
			Fields: &OrderFields{},
		})
		c.Assert(status, qt.Equals, http.StatusBadRequest)
		c.Assert(decodeError(c, data), qt.Equals, ErrAmbiguousOrderFormat.Code)
	})
}

func TestOrderLifecycle(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(c)

	status, data := ta.request(c, http.MethodPost, OrdersEndpoint,
		&Order{Inputs: orderprooftest.OrderStreamForTest(orderprooftest.ScenarioValid)})
	c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("%s", data))
	submitted := &NewOrderResponse{}
	c.Assert(json.Unmarshal(data, submitted), qt.IsNil)
	c.Assert(submitted.OrderID, qt.Not(qt.Equals), uuid.Nil)

	status, data = ta.request(c, http.MethodPost, OrdersEndpoint, &Order{Inputs: []byte{0xff}})
	c.Assert(status, qt.Equals, http.StatusOK)
	malformed := &NewOrderResponse{}
	c.Assert(json.Unmarshal(data, malformed), qt.IsNil)

	// pending until the sequencer runs
	status, data = ta.request(c, http.MethodGet, "/orders/"+submitted.OrderID.String(), nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	res := &OrderResponse{}
	c.Assert(json.Unmarshal(data, res), qt.IsNil)
	c.Assert(res.Status, qt.Equals, OrderStatusPending)

	status, data = ta.request(c, http.MethodGet, InfoEndpoint, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	info := &InfoResponse{}
	c.Assert(json.Unmarshal(data, info), qt.IsNil)
	c.Assert(info.PendingOrders, qt.Equals, 2)
	c.Assert(info.SequencerAddress, qt.Equals, ta.seq.Address().String())

	for _, id := range []uuid.UUID{submitted.OrderID, malformed.OrderID} {
		o, err := ta.stg.NextOrder()
		c.Assert(err, qt.IsNil)
		c.Assert(o.ID, qt.Equals, id)
		receipt, err := ta.seq.ProcessOrder(o)
		c.Assert(err, qt.IsNil)
		c.Assert(ta.stg.MarkOrderDone(o.ID, receipt), qt.IsNil)
	}

	status, data = ta.request(c, http.MethodGet, "/orders/"+submitted.OrderID.String(), nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	res = &OrderResponse{}
	c.Assert(json.Unmarshal(data, res), qt.IsNil)
	c.Assert(res.Status, qt.Equals, OrderStatusProcessed)
	c.Assert(res.Result.IsValid, qt.IsTrue)
	c.Assert(res.Bundle, qt.HasLen, types.PublicValuesSize)
	addr, err := ethereum.AddrFromSignature(res.Bundle, res.Signature)
	c.Assert(err, qt.IsNil)
	c.Assert(addr, qt.Equals, ta.seq.Address())

	status, data = ta.request(c, http.MethodGet, "/orders/"+malformed.OrderID.String(), nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	res = &OrderResponse{}
	c.Assert(json.Unmarshal(data, res), qt.IsNil)
	c.Assert(res.Status, qt.Equals, OrderStatusMalformed)
	c.Assert(res.Bundle, qt.HasLen, 0)
	c.Assert(res.Error, qt.Not(qt.Equals), "")

	status, data = ta.request(c, http.MethodGet, "/orders/"+uuid.NewString(), nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)
	c.Assert(decodeError(c, data), qt.Equals, ErrOrderNotFound.Code)

	status, data = ta.request(c, http.MethodGet, "/orders/not-an-id", nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeError(c, data), qt.Equals, ErrMalformedOrderID.Code)
}

func TestFailedOrderStatus(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(c)

	o, err := ta.stg.PushOrder(orderprooftest.OrderStreamForTest(orderprooftest.ScenarioValid))
	c.Assert(err, qt.IsNil)
	// validated, but the proof could not be produced
	receipt, err := ta.seq.ProcessOrder(o)
	c.Assert(err, qt.IsNil)
	receipt.Signature = nil
	receipt.Error = "prove order: solver failed"
	c.Assert(ta.stg.MarkOrderDone(o.ID, receipt), qt.IsNil)

	status, data := ta.request(c, http.MethodGet, "/orders/"+o.ID.String(), nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	res := &OrderResponse{}
	c.Assert(json.Unmarshal(data, res), qt.IsNil)
	c.Assert(res.Status, qt.Equals, OrderStatusFailed)
	c.Assert(res.Bundle, qt.HasLen, types.PublicValuesSize)
	c.Assert(res.Error, qt.Equals, "prove order: solver failed")
}

func TestArtifactDownload(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(c)
	prevDir := circuits.BaseDir
	t.Cleanup(func() { circuits.BaseDir = prevDir })

	// the serving node has its artifacts cached
	circuits.BaseDir = ta.artifactsDir
	var hashes [3]types.HexBytes
	var contents [3][]byte
	for i := range hashes {
		contents[i] = util.RandomBytes(1024)
		a, err := circuits.StoreArtifact(contents[i])
		c.Assert(err, qt.IsNil)
		hashes[i] = a.Hash
	}
	c.Assert(ta.stg.SetArtifactHashes(orderproof.CircuitName, hashes), qt.IsNil)

	status, data := ta.request(c, http.MethodGet, InfoEndpoint, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	info := &InfoResponse{}
	c.Assert(json.Unmarshal(data, info), qt.IsNil)
	c.Assert(info.ArtifactHashes, qt.DeepEquals, hashes[:])

	status, data = ta.request(c, http.MethodGet, ArtifactsEndpoint+"/"+hashes[1].String(), nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(data, qt.DeepEquals, contents[1])

	// a second node downloads them into its own cache
	circuits.BaseDir = t.TempDir()
	ca, err := circuits.NewCircuitArtifacts([3]types.HexBytes(info.ArtifactHashes), ta.server.URL+ArtifactsEndpoint)
	c.Assert(err, qt.IsNil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Assert(ca.LoadAll(ctx), qt.IsNil)
	c.Assert(ca.CircuitDefinition.Content, qt.DeepEquals, contents[0])
	c.Assert(ca.ProvingKey.Content, qt.DeepEquals, contents[1])
	c.Assert(ca.VerifyingKey.Content, qt.DeepEquals, contents[2])
	cached := &circuits.Artifact{Hash: hashes[2]}
	c.Assert(cached.Load(), qt.IsNil)

	unknown := validator.Hash([]byte("unknown artifact"))
	status, data = ta.request(c, http.MethodGet, ArtifactsEndpoint+"/"+unknown.String(), nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)
	c.Assert(decodeError(c, data), qt.Equals, ErrArtifactNotFound.Code)

	for _, bad := range []string{"zz", "abcd"} {
		status, data = ta.request(c, http.MethodGet, ArtifactsEndpoint+"/"+bad, nil)
		c.Assert(status, qt.Equals, http.StatusBadRequest)
		c.Assert(decodeError(c, data), qt.Equals, ErrMalformedArtifactHash.Code)
	}
}

func TestServerStartStop(t *testing.T) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	a, err := New(&APIConfig{Host: "127.0.0.1", Port: 0, Storage: stg})
	c.Assert(err, qt.IsNil)

	resp, err := http.Get("http://" + a.Addr().String() + PingEndpoint)
	c.Assert(err, qt.IsNil)
	resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Assert(a.Stop(ctx), qt.IsNil)

	_, err = New(&APIConfig{Host: "127.0.0.1"})
	c.Assert(err, qt.ErrorMatches, "missing storage instance")
}
