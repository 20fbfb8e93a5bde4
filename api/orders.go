package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/storage"
	"github.com/vocdoni/z-orders/validator"
)

// decodeOrder reads the order body and returns its input stream. The
// stream is not validated here.
func decodeOrder(r *http.Request) ([]byte, *Error) {
	order := &Order{}
	if err := json.NewDecoder(r.Body).Decode(order); err != nil {
		apiErr := ErrMalformedBody.Withf("could not decode request body: %v", err)
		return nil, &apiErr
	}
	switch {
	case len(order.Inputs) > 0 && order.Fields != nil, len(order.Inputs) == 0 && order.Fields == nil:
		return nil, &ErrAmbiguousOrderFormat
	case order.Fields != nil:
		return order.Fields.Inputs().Bytes(), nil
	default:
		return order.Inputs, nil
	}
}

// newOrder queues an order for validation
// POST /orders
func (a *API) newOrder(w http.ResponseWriter, r *http.Request) {
	stream, apiErr := decodeOrder(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	o, err := a.storage.PushOrder(stream)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not store order: %v", err).Write(w)
		return
	}
	log.Infow("new order", "orderId", o.ID.String(), "bytes", len(stream))
	httpWriteJSON(w, &NewOrderResponse{OrderID: o.ID})
}

// validateOrder validates an order synchronously and returns its public
// output bundle. Nothing is stored.
// POST /orders/validate
func (a *API) validateOrder(w http.ResponseWriter, r *http.Request) {
	stream, apiErr := decodeOrder(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	bundle, err := validator.Execute(stream)
	if err != nil {
		ErrMalformedOrderInput.WithErr(err).Write(w)
		return
	}
	out, err := validator.DecodeOutput(bundle)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not decode output bundle: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &ValidationResponse{Bundle: bundle, Output: out})
}

// order returns the status of an order and its receipt once processed
// GET /orders/{orderId}
func (a *API) order(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, OrderURLParam))
	if err != nil {
		ErrMalformedOrderID.WithErr(err).Write(w)
		return
	}
	receipt, err := a.storage.Receipt(id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			ErrGenericInternalServerError.Withf("could not get receipt: %v", err).Write(w)
			return
		}
		if a.storage.IsPending(id) {
			httpWriteJSON(w, &OrderResponse{OrderID: id, Status: OrderStatusPending})
			return
		}
		ErrOrderNotFound.Write(w)
		return
	}
	res := &OrderResponse{
		OrderID:     receipt.ID,
		Status:      OrderStatusProcessed,
		Bundle:      receipt.Bundle,
		Result:      receipt.Result,
		Proof:       receipt.Proof,
		Signature:   receipt.Signature,
		Error:       receipt.Error,
		ProcessedAt: receipt.ProcessedAt,
	}
	switch {
	case receipt.Malformed():
		res.Status = OrderStatusMalformed
	case receipt.Failed():
		res.Status = OrderStatusFailed
	}
	httpWriteJSON(w, res)
}
