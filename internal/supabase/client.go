// Package supabase is a store.Repository backed by the Supabase REST API
// (PostgREST).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTimeout is returned when a request exceeds the client timeout.
var ErrTimeout = errors.New("supabase request timed out")

// Error is a non-2xx response from PostgREST.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase error: %d - %s", e.StatusCode, e.Body)
}

const (
	preferRepresentation = "return=representation"
	preferUpsert         = "resolution=merge-duplicates,return=representation"
	preferIgnore         = "resolution=ignore-duplicates,return=minimal"
)

type Client struct {
	baseURL string
	key     string
	client  *http.Client
}

// New creates a client for the project at baseURL, e.g. https://xyz.supabase.co.
func New(baseURL, key string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		key:     key,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// do sends one request to /rest/v1/{table}. When out is non-nil the response
// body is decoded into it.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, prefer string, out any) error {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", table, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s %s: %w", method, table, ErrTimeout)
		}
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s %s: %w", method, table, ErrTimeout)
		}
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func eq(v string) string { return "eq." + v }

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ilike matches v case-insensitively and literally, with LIKE wildcards
// escaped.
func ilike(v string) string { return "ilike." + likeEscaper.Replace(v) }
