// Package recordstore talks to the spreadsheet-backed script service that owns
// every PO record. All calls go through one action-dispatch endpoint.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxResponseBytes = 32 << 20

// Client issues action requests against the backend endpoint. It never retries.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
	metrics  *Metrics
}

// NewClient constructs a Client. A nil httpClient uses a client without a local
// timeout; the request context bounds each call.
func NewClient(endpoint string, httpClient *http.Client, logger *slog.Logger, metrics *Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: endpoint, http: httpClient, logger: logger, metrics: metrics}
}

// Endpoint returns the configured backend URL.
func (c *Client) Endpoint() string {
	if c == nil {
		return ""
	}
	return c.endpoint
}

// Call sends {action, ...payload} and decodes the reply. Error mappings and
// success:false become a *BusinessRejection.
func (c *Client) Call(ctx context.Context, action string, payload map[string]any) (Response, error) {
	start := time.Now()
	resp, err := c.call(ctx, action, payload)
	c.metrics.Observe(action, err, time.Since(start))
	if err != nil {
		c.logError(action, err)
	}
	return resp, err
}

func (c *Client) call(ctx context.Context, action string, payload map[string]any) (Response, error) {
	if c == nil || c.endpoint == "" {
		return Response{}, ErrNotConfigured
	}
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action

	encoded, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("recordstore: %s: encode payload: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return Response{}, &TransportError{Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, &TransportError{Action: action, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return Response{}, &TransportError{Action: action, Err: err}
	}

	decoded, err := decodeResponse(raw)
	if err != nil {
		return Response{}, &MalformedResponse{Action: action, Status: res.StatusCode, Raw: preview(raw), Err: err}
	}
	if msg := decoded.ErrorMessage(); msg != "" {
		return decoded, &BusinessRejection{Action: action, Message: msg}
	}
	if ok, present := decoded.Success(); present && !ok {
		return decoded, &BusinessRejection{Action: action, Message: messageOf(decoded.body)}
	}
	return decoded, nil
}

func (c *Client) logError(action string, err error) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Error("recordstore call", slog.String("action", action), slog.Any("error", err))
}

func messageOf(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "msg"} {
		if s, ok := obj[key].(string); ok {
			return s
		}
	}
	return ""
}
