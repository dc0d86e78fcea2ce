package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// errSubjectNotFound is returned by fetchLatest when the subject has no versions yet.
var errSubjectNotFound = errors.New("schema subject not found")

const registryContentType = "application/vnd.schemaregistry.v1+json"

// SchemaRegistryClient registers the JSON schemas of entry events with a
// Confluent-compatible Schema Registry.
type SchemaRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSchemaRegistryClient constructs a client with a 10s request timeout.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// EnsureSchema returns the ID of the latest version of subject, registering
// schema first when the subject does not exist.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	id, err := c.fetchLatest(ctx, subject)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, errSubjectNotFound) {
		return 0, err
	}
	return c.register(ctx, subject, schema)
}

func (c *SchemaRegistryClient) fetchLatest(ctx context.Context, subject string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.subjectURL(subject)+"/versions/latest", nil)
	if err != nil {
		return 0, err
	}
	return c.doID(req, "schema registry error")
}

func (c *SchemaRegistryClient) register(ctx context.Context, subject string, schema string) (int, error) {
	body, err := json.Marshal(map[string]any{
		"schemaType": "JSON",
		"schema":     schema,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.subjectURL(subject)+"/versions", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", registryContentType)
	return c.doID(req, "schema registry register error")
}

func (c *SchemaRegistryClient) subjectURL(subject string) string {
	return fmt.Sprintf("%s/subjects/%s", c.baseURL, url.PathEscape(subject))
}

func (c *SchemaRegistryClient) doID(req *http.Request, failure string) (int, error) {
	req.Header.Set("Accept", registryContentType)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && req.Method == http.MethodGet {
		return 0, errSubjectNotFound
	}
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("%s: status %d: %s", failure, resp.StatusCode, bytes.TrimSpace(data))
	}

	var payload struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return payload.ID, nil
}
