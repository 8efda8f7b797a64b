// Package arena is the remote BOM source: a client for the Arena-style PLM
// HTTP API. Calls block for up to the configured timeout and are never
// retried automatically.
package arena

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

	"github.com/google/uuid"
	"github.com/zulandar/bomsync/internal/bom"
	"golang.org/x/oauth2"
)

// Client talks to the PLM API with a static bearer token.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client for the API rooted at baseURL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = timeout
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: httpClient,
	}
}

// bomEntry is the wire form of one BOM line.
type bomEntry struct {
	ItemNumber     string            `json:"item_number"`
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description,omitempty"`
	Category       string            `json:"category,omitempty"`
	LifecyclePhase string            `json:"lifecycle_phase,omitempty"`
	Quantity       int               `json:"quantity"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

type bomResponse struct {
	Count   int        `json:"count"`
	Results []bomEntry `json:"results"`
}

type itemResult struct {
	GUID       string `json:"guid"`
	ItemNumber string `json:"item_number"`
	Name       string `json:"name"`
}

type itemResponse struct {
	Count   int          `json:"count"`
	Results []itemResult `json:"results"`
}

// FindItem resolves an item number to its remote GUID.
func (c *Client) FindItem(ctx context.Context, itemNumber string) (string, error) {
	const op = "find item"

	endpoint := fmt.Sprintf("%s/items?item_number=%s", c.base, url.QueryEscape(itemNumber))
	resp, err := c.do(ctx, op, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp); err != nil {
		return "", err
	}

	var body itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.Count == 0 || len(body.Results) == 0 || body.Results[0].GUID == "" {
		return "", &NotFoundError{Kind: "item", ID: itemNumber}
	}
	return body.Results[0].GUID, nil
}

// FetchBOM fetches an assembly's BOM and normalizes it into a remote-origin
// snapshot. Duplicate item numbers are aggregated by summing quantities.
func (c *Client) FetchBOM(ctx context.Context, remoteID string) (*bom.Snapshot, error) {
	const op = "fetch bom"

	endpoint := fmt.Sprintf("%s/items/%s/bom", c.base, url.PathEscape(remoteID))
	resp, err := c.do(ctx, op, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Kind: "assembly", ID: remoteID}
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}

	var body bomResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	lines := make([]bom.Line, 0, len(body.Results))
	for _, e := range body.Results {
		lines = append(lines, bom.Line{
			ItemNumber:     e.ItemNumber,
			Name:           e.Name,
			Description:    e.Description,
			Category:       e.Category,
			LifecyclePhase: e.LifecyclePhase,
			Quantity:       e.Quantity,
			Attributes:     e.Attributes,
		})
	}
	snap, err := bom.NewSnapshot(bom.OriginRemote, bom.Aggregate(lines))
	if err != nil {
		return nil, fmt.Errorf("arena: fetch bom %s: %w", remoteID, err)
	}
	return snap, nil
}

// PushBOM replaces the assembly's remote BOM with the given lines. Every
// attempt carries a fresh idempotency key.
func (c *Client) PushBOM(ctx context.Context, remoteID string, lines []bom.Line) error {
	const op = "push bom"

	entries := make([]bomEntry, 0, len(lines))
	for _, ln := range lines {
		entries = append(entries, bomEntry{
			ItemNumber:     ln.ItemNumber,
			Name:           ln.Name,
			Description:    ln.Description,
			Category:       ln.Category,
			LifecyclePhase: ln.LifecyclePhase,
			Quantity:       ln.Quantity,
			Attributes:     ln.Attributes,
		})
	}
	payload, err := json.Marshal(struct {
		Lines []bomEntry `json:"lines"`
	}{Lines: entries})
	if err != nil {
		return fmt.Errorf("arena: push bom %s: encode payload: %w", remoteID, err)
	}

	endpoint := fmt.Sprintf("%s/items/%s/bom", c.base, url.PathEscape(remoteID))
	resp, err := c.do(ctx, op, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{Kind: "assembly", ID: remoteID}
	}
	return checkStatus(op, resp)
}

// do issues one request with a fresh request id. Transport failures come
// back as NetworkError with status 0.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("arena: %s: build request: %w", op, err)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return resp, nil
}

// checkStatus turns non-2xx responses into NetworkError, preserving the
// server's message verbatim.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &NetworkError{
		Op:     op,
		Status: resp.StatusCode,
		Err:    errors.New(strings.TrimSpace(string(msg))),
	}
}
