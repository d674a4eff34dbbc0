// Package restclient implements core.DocumentRepository against the editor's JSON API,
// so the REPL can edit documents held by a remote server.
package restclient

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

	"procurement-docs/internal/app"
	"procurement-docs/internal/core"

	"github.com/google/uuid"
)

// Client talks to a server started by cmd/server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL (e.g. "http://localhost:8080"). A nil hc gets a
// client with a 30 second timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var (
	_ core.DocumentRepository = (*Client)(nil)
	_ core.DocumentNumberer   = (*Client)(nil)
)

func (c *Client) GetDocument(ctx context.Context, docType core.DocumentType, id int) (*core.Document, error) {
	var res app.DocumentResult
	if err := c.do(ctx, http.MethodGet, c.documentPath(docType, id), nil, &res); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", docType, id, err)
	}
	return &res.Document, nil
}

func (c *Client) ListDocuments(ctx context.Context, docType core.DocumentType) ([]core.DocumentSummary, error) {
	var res app.DocumentListResult
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+string(docType), nil, &res); err != nil {
		return nil, fmt.Errorf("list %s: %w", docType, err)
	}
	return res.Documents, nil
}

func (c *Client) SaveDocument(ctx context.Context, doc core.Document) (*core.Document, error) {
	method, path := http.MethodPut, c.documentPath(doc.Type, doc.ID)
	if doc.ID == 0 {
		method, path = http.MethodPost, "/api/documents/"+string(doc.Type)
	}
	var res app.DocumentResult
	if err := c.do(ctx, method, path, doc, &res); err != nil {
		return nil, fmt.Errorf("save %s %d: %w", doc.Type, doc.ID, err)
	}
	return &res.Document, nil
}

func (c *Client) CheckDuplicate(ctx context.Context, docType core.DocumentType, number, date string, excludeID int) (*core.DuplicateCheckResult, error) {
	q := url.Values{}
	q.Set("number", number)
	if date != "" {
		q.Set("date", date)
	}
	if excludeID != 0 {
		q.Set("exclude_id", strconv.Itoa(excludeID))
	}
	var res core.DuplicateCheckResult
	path := "/api/documents/" + string(docType) + "/duplicate-check?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, fmt.Errorf("duplicate check %s %q: %w", docType, number, err)
	}
	return &res, nil
}

// NextNumber reserves a number from the server's series.
func (c *Client) NextNumber(ctx context.Context, docType core.DocumentType, date string) (string, error) {
	path := "/api/documents/" + string(docType) + "/next-number"
	if date != "" {
		path += "?" + url.Values{"date": {date}}.Encode()
	}
	var res app.NumberResult
	if err := c.do(ctx, http.MethodPost, path, nil, &res); err != nil {
		return "", fmt.Errorf("next number %s: %w", docType, err)
	}
	return res.DocumentNumber, nil
}

func (c *Client) documentPath(docType core.DocumentType, id int) string {
	return fmt.Sprintf("/api/documents/%s/%d", docType, id)
}

// apiError is the server's error body.
type apiError struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var ae apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&ae)
		return statusError(resp.StatusCode, ae)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps an HTTP error back onto the core sentinel errors so callers can use
// errors.Is the same way they do with a local repository.
func statusError(status int, ae apiError) error {
	msg := ae.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, core.ErrDocumentNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", msg, core.ErrVersionConflict)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%s: %w", msg, core.ErrInvalidDocument)
	case http.StatusNotImplemented:
		return fmt.Errorf("%s: %w", msg, core.ErrNumberingUnsupported)
	}
	if ae.RequestID != "" {
		return fmt.Errorf("server returned %d (request %s): %s", status, ae.RequestID, msg)
	}
	return fmt.Errorf("server returned %d: %s", status, msg)
}
