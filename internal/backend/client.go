// Package backend is the HTTP client for the receipt backend's REST API.
package backend

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

	"github.com/receiptos/receiptos/internal/normalize"
	"github.com/receiptos/receiptos/internal/revocation"
)

// DefaultBaseURL is used when no backend URL is configured
const DefaultBaseURL = "http://localhost:8000"

// ErrNotFound is returned when the backend answers 404
var ErrNotFound = errors.New("not found")

// StatusError is returned for any other non-2xx response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend API error (status %d): %s", e.Code, e.Body)
}

// IngestRequest is the body of POST /api/ingest
type IngestRequest struct {
	RawText    string         `json:"raw_text"`
	SourceType string         `json:"source_type,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// IngestResponse carries the stored receipt and the raw extraction result
type IngestResponse struct {
	Receipt       normalize.Payload `json:"receipt"`
	ExtractResult json.RawMessage   `json:"extract_result"`
}

// Client talks to the receipt backend
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client. A zero timeout leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ListReceipts fetches every raw receipt
func (c *Client) ListReceipts(ctx context.Context) ([]normalize.Payload, error) {
	var payloads []normalize.Payload
	if err := c.do(ctx, http.MethodGet, "/api/receipts", nil, &payloads); err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	if payloads == nil {
		payloads = []normalize.Payload{}
	}
	return payloads, nil
}

// GetReceipt fetches one raw receipt; a missing receipt yields ErrNotFound
func (c *Client) GetReceipt(ctx context.Context, id string) (*normalize.Payload, error) {
	var payload normalize.Payload
	if err := c.do(ctx, http.MethodGet, "/api/receipts/"+url.PathEscape(id), nil, &payload); err != nil {
		return nil, fmt.Errorf("getting receipt %s: %w", id, err)
	}
	return &payload, nil
}

// Ingest submits raw document text for extraction
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	var resp IngestResponse
	if err := c.do(ctx, http.MethodPost, "/api/ingest", req, &resp); err != nil {
		return nil, fmt.Errorf("ingesting document: %w", err)
	}
	return &resp, nil
}

// DeleteReceipt removes a receipt; a missing receipt yields ErrNotFound
func (c *Client) DeleteReceipt(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/receipts/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("deleting receipt %s: %w", id, err)
	}
	return nil
}

// ListRevocationRequests fetches revocation requests, optionally filtered by status
func (c *Client) ListRevocationRequests(ctx context.Context, status revocation.Status) ([]revocation.Request, error) {
	path := "/api/revocation/requests"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var requests []revocation.Request
	if err := c.do(ctx, http.MethodGet, path, nil, &requests); err != nil {
		return nil, fmt.Errorf("listing revocation requests: %w", err)
	}
	if requests == nil {
		requests = []revocation.Request{}
	}
	return requests, nil
}

// GetRevocationRequest fetches one revocation request
func (c *Client) GetRevocationRequest(ctx context.Context, id string) (*revocation.Request, error) {
	var request revocation.Request
	if err := c.do(ctx, http.MethodGet, "/api/revocation/requests/"+url.PathEscape(id), nil, &request); err != nil {
		return nil, fmt.Errorf("getting revocation request %s: %w", id, err)
	}
	return &request, nil
}

// CreateRevocationRequest opens a new revocation request
func (c *Client) CreateRevocationRequest(ctx context.Context, req revocation.CreateRequest) (*revocation.Request, error) {
	var request revocation.Request
	if err := c.do(ctx, http.MethodPost, "/api/revocation/requests", req, &request); err != nil {
		return nil, fmt.Errorf("creating revocation request: %w", err)
	}
	return &request, nil
}

// GenerateRevocationLetter asks the backend to render a request letter
func (c *Client) GenerateRevocationLetter(ctx context.Context, id string, templateType string) (*revocation.Letter, error) {
	if templateType == "" {
		templateType = "standard"
	}
	body := map[string]string{"request_id": id, "template_type": templateType}
	var letter revocation.Letter
	path := "/api/revocation/requests/" + url.PathEscape(id) + "/generate-letter"
	if err := c.do(ctx, http.MethodPost, path, body, &letter); err != nil {
		return nil, fmt.Errorf("generating letter for %s: %w", id, err)
	}
	return &letter, nil
}

// SendRevocationRequest dispatches a drafted request
func (c *Client) SendRevocationRequest(ctx context.Context, id string) (*revocation.Request, error) {
	var request revocation.Request
	path := "/api/revocation/requests/" + url.PathEscape(id) + "/send"
	if err := c.do(ctx, http.MethodPost, path, nil, &request); err != nil {
		return nil, fmt.Errorf("sending revocation request %s: %w", id, err)
	}
	return &request, nil
}

// RevocationTimeline fetches a request's event history
func (c *Client) RevocationTimeline(ctx context.Context, id string) ([]revocation.TimelineEvent, error) {
	var events []revocation.TimelineEvent
	path := "/api/revocation/requests/" + url.PathEscape(id) + "/timeline"
	if err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, fmt.Errorf("getting timeline for %s: %w", id, err)
	}
	if events == nil {
		events = []revocation.TimelineEvent{}
	}
	return events, nil
}

// do sends one JSON request and decodes the response into out when non-nil
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling backend API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
