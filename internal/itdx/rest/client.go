package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"itdx-mm-bot/internal/itdx/sign"

	"go.uber.org/zap"
)

// RequestError is any non-2xx response from the exchange. It is never
// retried; callers decide whether it is fatal.
type RequestError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("endpoint %s returned %d: %s", e.Endpoint, e.Status, e.Body)
}

// Client executes REST calls against the exchange. Private calls are signed
// per request; public calls carry no auth headers.
type Client struct {
	baseURL string
	http    *http.Client
	signer  *sign.Signer
	log     *zap.Logger
}

func New(baseURL string, timeout time.Duration, signer *sign.Signer, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
		},
		signer: signer,
		log:    log,
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out, false)
}

func (c *Client) getPrivate(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out, true)
}

// do builds, optionally signs, and executes one request. The signed message
// covers the path, the encoded query (with its leading "?") and the exact
// body bytes sent.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, out any, private bool) error {
	query := ""
	if len(params) > 0 {
		query = "?" + params.Encode()
	}
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+query, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if private {
		if c.signer == nil {
			return fmt.Errorf("endpoint %s requires credentials", path)
		}
		for k, v := range c.signer.Headers(path, query, string(payload)) {
			req.Header.Set(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &RequestError{Endpoint: path, Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
