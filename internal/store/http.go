// internal/store/http.go
//
// Client for the hosted match API served by youme-server.
//
//   PUT    /matches/{id}                 upsert
//   GET    /matches/{id}                 select one (404 → ErrNotFound)
//   GET    /matches?game_code=N&limit=1  existence check
//   DELETE /matches?older_than=RFC3339   retention cleanup
//
// Every request carries the anon key as a bearer token and a fresh
// X-Request-Id so server logs can be correlated with client logs.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/youme-word/internal/config"
)

// HTTP is a Store that talks to the hosted match API.
type HTTP struct {
	base   string
	apiKey string
	client *http.Client
}

// NewHTTP builds a client. A zero Timeout leaves requests unbounded.
func NewHTTP(cfg config.HTTPConfig) *HTTP {
	return &HTTP{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// apiError is the JSON error body returned by the server.
type apiError struct {
	Error string `json:"error"`
}

// StatusError reports a non-2xx answer from the API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("match api: %d %s", e.Status, e.Message)
}

// do sends a request and decodes a JSON response into out (when non-nil).
func (h *HTTP) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		if resp.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("%w: %s", ErrInvalidRecord, ae.Error)
		}
		return &StatusError{Status: resp.StatusCode, Message: ae.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Upsert PUTs the full record.
func (h *HTTP) Upsert(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return h.do(ctx, http.MethodPut, "/matches/"+url.PathEscape(rec.ID), rec, nil)
}

// Get fetches one record.
func (h *HTTP) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := h.do(ctx, http.MethodGet, "/matches/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CodeExists lists at most one record for the code.
func (h *HTTP) CodeExists(ctx context.Context, code int) (bool, error) {
	q := url.Values{}
	q.Set("game_code", strconv.Itoa(code))
	q.Set("limit", "1")
	var recs []Record
	if err := h.do(ctx, http.MethodGet, "/matches?"+q.Encode(), nil, &recs); err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

// DeleteOlderThan asks the server to purge old records.
func (h *HTTP) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	q := url.Values{}
	q.Set("older_than", cutoff.UTC().Format(time.RFC3339Nano))
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := h.do(ctx, http.MethodDelete, "/matches?"+q.Encode(), nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
