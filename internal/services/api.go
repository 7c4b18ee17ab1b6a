// Client for the local vors server, used by CLI commands
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ServerClient makes raw HTTP requests against a running vors server, for
// CLI diagnostics such as `auth status`.
type ServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServerClient creates a client for the local server.
func NewServerClient(baseURL string, client *http.Client) *ServerClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &ServerClient{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// ServerResponse represents a raw server response with status and body.
type ServerResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw
// response.
func (c *ServerClient) Get(ctx context.Context, path string) (*ServerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	serverResp := &ServerResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		serverResp.IsJSON = true
		serverResp.JSONData = jsonData
	}

	return serverResp, nil
}

// AuthStatus fetches the server's token status report.
func (c *ServerClient) AuthStatus(ctx context.Context) (*ServerResponse, error) {
	return c.Get(ctx, "/auth/status")
}

// Health fetches the server's health endpoint.
func (c *ServerClient) Health(ctx context.Context) (*ServerResponse, error) {
	return c.Get(ctx, "/health")
}
