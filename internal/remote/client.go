// Package remote implements optimistic.Remote over the entry HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caseydemo/workout-app/internal/optimistic"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Type   string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("entry api: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("entry api: status %d (%s): %s", e.Status, e.Type, e.Detail)
}

// Client talks to /v1/{category}/entries for one category.
type Client[P any] struct {
	baseURL    string
	category   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// NewClient constructs a Client rooted at baseURL.
func NewClient[P any](baseURL, category string, opts ...Option) *Client[P] {
	o := options{httpClient: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client[P]{
		baseURL:    strings.TrimRight(baseURL, "/"),
		category:   category,
		httpClient: o.httpClient,
	}
}

type wireEntry[P any] struct {
	ID        string    `json:"id"`
	Payload   P         `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w wireEntry[P]) record() optimistic.Record[P] {
	return optimistic.Record[P]{ID: w.ID, Payload: w.Payload, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt}
}

// List implements optimistic.Loader.
func (c *Client[P]) List(ctx context.Context) ([]optimistic.Record[P], error) {
	var body struct {
		Items []wireEntry[P] `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, c.collectionURL(), nil, &body); err != nil {
		return nil, err
	}
	out := make([]optimistic.Record[P], 0, len(body.Items))
	for _, item := range body.Items {
		out = append(out, item.record())
	}
	return out, nil
}

// Create implements optimistic.Remote.
func (c *Client[P]) Create(ctx context.Context, payload P) (optimistic.Record[P], error) {
	var created wireEntry[P]
	if err := c.do(ctx, http.MethodPost, c.collectionURL(), payload, &created); err != nil {
		return optimistic.Record[P]{}, err
	}
	return created.record(), nil
}

// Update implements optimistic.Remote.
func (c *Client[P]) Update(ctx context.Context, id string, payload P) (optimistic.Record[P], error) {
	var updated wireEntry[P]
	if err := c.do(ctx, http.MethodPut, c.entryURL(id), payload, &updated); err != nil {
		return optimistic.Record[P]{}, err
	}
	return updated.record(), nil
}

// Delete implements optimistic.Remote.
func (c *Client[P]) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.entryURL(id), nil, nil)
}

func (c *Client[P]) collectionURL() string {
	return fmt.Sprintf("%s/v1/%s/entries", c.baseURL, url.PathEscape(c.category))
}

func (c *Client[P]) entryURL(id string) string {
	return c.collectionURL() + "/" + url.PathEscape(id)
}

func (c *Client[P]) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	statusErr := &StatusError{Status: resp.StatusCode}
	var body struct {
		Type   string `json:"type"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && body.Type != "" {
		statusErr.Type = body.Type
		statusErr.Detail = body.Detail
	} else {
		statusErr.Detail = strings.TrimSpace(string(data))
	}
	return statusErr
}
