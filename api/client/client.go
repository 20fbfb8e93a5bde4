package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/z-orders/api"
	"github.com/vocdoni/z-orders/log"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	errCodeNot200 = "API error"

	// DefaultRetries this enables Request() to handle the situation where the server connection fails
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 10 * time.Second
	// retryDelay is the wait between two attempts of the same request
	retryDelay = 500 * time.Millisecond
)

// HTTPclient is the order sequencer API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New connects to the API host and checks that it is alive.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	c := &HTTPclient{
		c:       &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	data, status, err := c.Request(HTTPGET, nil, nil, api.PingEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return c, nil
}

// SetRetries configures the number of retries for the HTTP client.
func (c *HTTPclient) SetRetries(n int) {
	if n < 1 {
		n = 1
	}
	c.retries = n
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// Request performs a `method` type raw request to the endpoint specified in urlPath parameter.
// Method is either GET or POST. If POST, a JSON struct should be attached.  Returns the response,
// the status code and an error.
//
// Supports query parameters via `params` slice. If the slice is not empty, it should contain pairs of strings;
// the first element of each pair is the key, and the second element is the value.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	if len(params) > 0 {
		values := url.Values{}
		for i := 0; i < len(params)-1; i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	headers := http.Header{}
	if jsonBody != nil {
		headers.Set("Content-Type", "application/json")
		headers.Set("Accept", "application/json")
	}

	log.Debugw("http client request",
		"type", method,
		"url", u.String(),
		"bodyBytes", len(body),
	)

	var resp *http.Response
	var lastErr error
	for i := 1; i <= c.retries; i++ {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequest(method, u.String(), reqBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header = headers

		resp, lastErr = c.c.Do(req)
		if lastErr == nil {
			break
		}
		log.Warnw("http request failed", "error", lastErr.Error(), "attempt", i, "retries", c.retries)
		time.Sleep(retryDelay)
	}
	if lastErr != nil {
		return nil, 0, fmt.Errorf("http request ultimately failed after retries: %w", lastErr)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// requestJSON performs a request and decodes a 200 response into out.
func (c *HTTPclient) requestJSON(method string, jsonBody, out any, urlPath ...string) error {
	data, status, err := c.Request(method, jsonBody, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, bytes.TrimSpace(data))
	}
	return json.Unmarshal(data, out)
}

// SubmitOrder queues an encoded input stream and returns its order ID.
func (c *HTTPclient) SubmitOrder(stream []byte) (uuid.UUID, error) {
	res := &api.NewOrderResponse{}
	if err := c.requestJSON(HTTPPOST, &api.Order{Inputs: stream}, res, api.OrdersEndpoint); err != nil {
		return uuid.Nil, err
	}
	return res.OrderID, nil
}

// Order returns the status of an order.
func (c *HTTPclient) Order(id uuid.UUID) (*api.OrderResponse, error) {
	res := &api.OrderResponse{}
	if err := c.requestJSON(HTTPGET, nil, res, api.OrdersEndpoint, id.String()); err != nil {
		return nil, err
	}
	return res, nil
}

// WaitOrder polls the order until it is processed or the timeout expires.
func (c *HTTPclient) WaitOrder(id uuid.UUID, timeout time.Duration) (*api.OrderResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		res, err := c.Order(id)
		if err != nil {
			return nil, err
		}
		if res.Status != api.OrderStatusPending {
			return res, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("order %s still pending after %s", id, timeout)
		}
		time.Sleep(retryDelay)
	}
}

// Validate validates an encoded input stream synchronously.
func (c *HTTPclient) Validate(stream []byte) (*api.ValidationResponse, error) {
	res := &api.ValidationResponse{}
	if err := c.requestJSON(HTTPPOST, &api.Order{Inputs: stream}, res, api.ValidateOrderEndpoint); err != nil {
		return nil, err
	}
	return res, nil
}

// Info returns the sequencer info.
func (c *HTTPclient) Info() (*api.InfoResponse, error) {
	res := &api.InfoResponse{}
	if err := c.requestJSON(HTTPGET, nil, res, api.InfoEndpoint); err != nil {
		return nil, err
	}
	return res, nil
}
