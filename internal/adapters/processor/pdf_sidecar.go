package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PDFSidecar calls an external Python service for PDF text extraction.
// Go's PDF libraries lag behind pdfplumber on scanned and tabular PDFs, so
// extraction stays in Python.
type PDFSidecar struct {
	serviceURL string
	client     *http.Client
}

// NewPDFSidecar creates a sidecar client.
func NewPDFSidecar(serviceURL string) *PDFSidecar {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &PDFSidecar{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// sidecarResponse is the sidecar's response format.
type sidecarResponse struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Parse extracts text from PDF bytes via the sidecar.
func (p *PDFSidecar) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filename)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling PDF service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result sidecarResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("PDF parse error: %s", result.Error)
	}
	return result.Text, nil
}

// Healthy checks whether the sidecar is reachable.
func (p *PDFSidecar) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
