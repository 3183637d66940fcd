package visualization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agenthands/inquest/internal/core/model"
)

// Renderer turns a snapshot into a reference the client can open, usually a
// URL.
type Renderer interface {
	Render(ctx context.Context, snap model.Snapshot) (string, error)
}

// LinkRenderer points at this service's own graph data endpoint.
type LinkRenderer struct {
	BaseURL string
}

func (r LinkRenderer) Render(ctx context.Context, snap model.Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := strings.TrimRight(r.BaseURL, "/") + "/graph/data"
	if snap.Metadata.SessionID == "" {
		return ref, nil
	}
	return ref + "?session_id=" + url.QueryEscape(snap.Metadata.SessionID), nil
}

// HTTPRenderer posts the snapshot to an external render service that answers
// with {"url": "..."}.
type HTTPRenderer struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPRenderer(endpoint string) *HTTPRenderer {
	return &HTTPRenderer{Endpoint: endpoint, Client: http.DefaultClient}
}

type renderResponse struct {
	URL string `json:"url"`
}

func (r *HTTPRenderer) Render(ctx context.Context, snap model.Snapshot) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("render service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode render response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("render response has no url")
	}
	return out.URL, nil
}
