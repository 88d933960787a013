// Package layout talks to the external document-layout/OCR service. The
// service converts a source document into the HTML intermediate
// representation; this engine never re-derives layout itself.
package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client communicates with the layout service HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			// Layout analysis of large documents is slow.
			Timeout: 10 * time.Minute,
		},
	}
}

// ConvertRequest is the body for POST /v1/convert.
type ConvertRequest struct {
	Content       []byte   `json:"content"` // source document bytes, base64 on the wire
	Filename      string   `json:"filename,omitempty"`
	OCR           bool     `json:"ocr"`
	OCRLanguages  []string `json:"ocr_languages,omitempty"`
	EnhanceLayout bool     `json:"enhance_layout,omitempty"` // merge split key/value pairs
}

type convertResponse struct {
	HTML  string `json:"html"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Convert submits a source document and returns the intermediate HTML.
func (c *Client) Convert(ctx context.Context, req ConvertRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal convert request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/convert", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("layout convert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("layout convert: status %d: %s", resp.StatusCode, string(respBody))
	}

	var out convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode convert response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("layout convert: %s", out.Error)
	}
	if out.HTML == "" {
		return "", fmt.Errorf("layout convert: empty intermediate document")
	}
	return out.HTML, nil
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
