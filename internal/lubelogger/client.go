// Package lubelogger is a minimal client for the LubeLogger
// vehicle-maintenance REST API, covering only the endpoints the receipt
// service needs.
package lubelogger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is a LubeLogger API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new LubeLogger client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// UploadDocuments forwards the original files to the document store as one
// multipart batch under the "documents" field. The response body is returned
// verbatim so callers can pass the document references through unchanged.
func (c *Client) UploadDocuments(ctx context.Context, docs []Document) (json.RawMessage, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, doc := range docs {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="documents"; filename="%s"`, quoteEscaper.Replace(doc.Filename)))
		contentType := doc.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("creating multipart section: %w", err)
		}
		if _, err := part.Write(doc.Data); err != nil {
			return nil, fmt.Errorf("writing document data: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doJSON(req)
}

// AddGasRecord posts a gas record for the given vehicle. The vehicle
// identifier travels as a query parameter, the record as the JSON body.
func (c *Client) AddGasRecord(ctx context.Context, vehicleID string, record GasRecord) (json.RawMessage, error) {
	if record.Files == nil {
		record.Files = json.RawMessage("[]")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshaling gas record: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/vehicle/gasrecords/add?vehicleId=%s", c.baseURL, url.QueryEscape(vehicleID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(req)
}

// ListVehicles fetches all vehicles known to the backend.
func (c *Client) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/vehicles", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	raw, err := c.doJSON(req)
	if err != nil {
		return nil, err
	}

	var vehicles []Vehicle
	if err := json.Unmarshal(raw, &vehicles); err != nil {
		return nil, fmt.Errorf("decoding vehicles: %w", err)
	}
	return vehicles, nil
}

// Ping checks that the backend is reachable and serving.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/vehicles", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}

// doJSON executes the request and returns the response body, which must be
// valid JSON. Non-2xx statuses become an *APIError carrying the body.
func (c *Client) doJSON(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("response is not valid JSON: %q", truncate(string(body), 200))
	}
	return json.RawMessage(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
