package datanode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://vega-mainnet-data.commodum.io/api/v2"
	defaultTimeout = 10 * time.Second
)

// Client es el HTTP client del REST v2 del data node.
//
// Cada llamada es un único GET síncrono: no hay retries, rate limiting ni
// tratamiento del status code. Los errores de transporte y de JSON llegan al
// llamador envueltos con %w.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient crea un Client contra baseURL (p.ej. "https://host/api/v2").
// Si baseURL está vacío usa el data node de mainnet; timeout <= 0 usa 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL devuelve el endpoint configurado.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get hace un GET con Accept: application/json y decodifica el body en out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s (status %d): %w", path, resp.StatusCode, err)
	}
	return nil
}
