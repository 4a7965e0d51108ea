package recordstore

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

const maxProxyRequestBytes = 32 << 20

// Proxy forwards POSTed JSON to the backend verbatim and relays the reply.
type Proxy struct {
	client *Client
	logger *slog.Logger
}

// NewProxy constructs the pass-through handler.
func NewProxy(client *Client, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{client: client, logger: logger}
}

type proxyFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Raw     string `json:"raw,omitempty"`
}

// ServeHTTP answers 405 for anything but POST, 500 when the backend cannot be
// reached or replies with something other than JSON, and 200 otherwise.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeProxyJSON(w, http.StatusMethodNotAllowed, proxyFailure{Error: "Method not allowed"})
		return
	}
	if p.client.Endpoint() == "" {
		writeProxyJSON(w, http.StatusInternalServerError, proxyFailure{Error: ErrNotConfigured.Error()})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxProxyRequestBytes))
	if err != nil {
		writeProxyJSON(w, http.StatusBadRequest, proxyFailure{Error: "Body tidak dapat dibaca"})
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, p.client.Endpoint(), bytes.NewReader(body))
	if err != nil {
		writeProxyJSON(w, http.StatusInternalServerError, proxyFailure{Error: err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.http.Do(req)
	if err != nil {
		p.logger.Error("proxy request", slog.Any("error", err))
		writeProxyJSON(w, http.StatusInternalServerError, proxyFailure{Error: err.Error()})
		return
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		writeProxyJSON(w, http.StatusInternalServerError, proxyFailure{Error: err.Error()})
		return
	}
	if !json.Valid(raw) {
		p.logger.Warn("proxy non-JSON response", slog.Int("status", res.StatusCode))
		writeProxyJSON(w, http.StatusInternalServerError, proxyFailure{
			Error: "Response bukan JSON dari Apps Script",
			Raw:   string(raw),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func writeProxyJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
