// Package client is a thin Go client for the gateway's admin API: endpoint
// lifecycle and provider descriptor management over /admin/v1.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one gateway instance's admin API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Endpoint mirrors the admin API's JSON shape for an endpoint record.
type Endpoint struct {
	ID       string   `json:"id"`
	RouteKey RouteKey `json:"route_key"`
}

type RouteKey struct {
	Domain      string `json:"domain"`
	Method      string `json:"method"`
	PathPattern string `json:"path_pattern"`
}

// ProviderDescriptor mirrors the admin API's JSON shape for a provider
// descriptor. Config values are already redacted by the server.
type ProviderDescriptor struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Subtype string            `json:"subtype"`
	Config  map[string]string `json:"config"`
	Enabled bool              `json:"enabled"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RegisterEndpoint creates a route record (no handler loaded yet).
func (c *Client) RegisterEndpoint(ctx context.Context, key RouteKey) (*Endpoint, error) {
	var e Endpoint
	if err := c.do(ctx, http.MethodPost, "/admin/v1/endpoints/", key, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// CompileEndpoint submits handler source for endpointID and returns the
// built artifact path.
func (c *Client) CompileEndpoint(ctx context.Context, endpointID, source string) (string, error) {
	var out struct {
		Artifact string `json:"artifact"`
	}
	req := struct {
		Source string `json:"source"`
	}{Source: source}
	if err := c.do(ctx, http.MethodPost, "/admin/v1/endpoints/"+endpointID+"/compile", req, &out); err != nil {
		return "", err
	}
	return out.Artifact, nil
}

// StartEndpoint loads a compiled artifact for an endpoint with no active
// image yet.
func (c *Client) StartEndpoint(ctx context.Context, endpointID, artifactPath string) error {
	req := struct {
		ArtifactPath string `json:"artifact_path"`
	}{ArtifactPath: artifactPath}
	return c.do(ctx, http.MethodPost, "/admin/v1/endpoints/"+endpointID+"/start", req, nil)
}

// SwapEndpoint replaces the active image. A non-zero drainDeadline requests
// a graceful swap instead of an immediate one.
func (c *Client) SwapEndpoint(ctx context.Context, endpointID, artifactPath string, drainDeadline time.Duration) error {
	req := struct {
		ArtifactPath   string `json:"artifact_path"`
		DrainDeadlineS int    `json:"drain_deadline_seconds,omitempty"`
	}{ArtifactPath: artifactPath, DrainDeadlineS: int(drainDeadline.Seconds())}
	return c.do(ctx, http.MethodPost, "/admin/v1/endpoints/"+endpointID+"/swap", req, nil)
}

// UnloadEndpoint retires the active image and drops the route.
func (c *Client) UnloadEndpoint(ctx context.Context, endpointID string) error {
	return c.do(ctx, http.MethodPost, "/admin/v1/endpoints/"+endpointID+"/unload", nil, nil)
}

// RemoveEndpoint unloads (if loaded) and deletes the persisted record.
func (c *Client) RemoveEndpoint(ctx context.Context, endpointID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/v1/endpoints/"+endpointID, nil, nil)
}

// GetEndpoint fetches one endpoint record by id.
func (c *Client) GetEndpoint(ctx context.Context, endpointID string) (*Endpoint, error) {
	var e Endpoint
	if err := c.do(ctx, http.MethodGet, "/admin/v1/endpoints/"+endpointID, nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEndpoints fetches every persisted endpoint record.
func (c *Client) ListEndpoints(ctx context.Context) ([]Endpoint, error) {
	var es []Endpoint
	if err := c.do(ctx, http.MethodGet, "/admin/v1/endpoints/", nil, &es); err != nil {
		return nil, err
	}
	return es, nil
}

// CreateProvider registers a new provider descriptor.
func (c *Client) CreateProvider(ctx context.Context, d ProviderDescriptor) (*ProviderDescriptor, error) {
	var out ProviderDescriptor
	if err := c.do(ctx, http.MethodPost, "/admin/v1/providers/", d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivateProvider spawns the provider's actor and makes it reachable to
// handler code under its name.
func (c *Client) ActivateProvider(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/admin/v1/providers/"+id+"/activate", nil, nil)
}

// DeactivateProvider stops the provider's actor.
func (c *Client) DeactivateProvider(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/admin/v1/providers/"+id+"/deactivate", nil, nil)
}

// TestProvider probes connectivity without requiring activation first.
func (c *Client) TestProvider(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/admin/v1/providers/"+id+"/test", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("admin API returned non-JSON response (status %d): %s", resp.StatusCode, raw)
	}
	if resp.StatusCode >= 400 || !envelope.Success {
		if envelope.Error != "" {
			return fmt.Errorf("admin API error: %s: %s", envelope.Error, envelope.Message)
		}
		return fmt.Errorf("admin API error (status %d): %s", resp.StatusCode, raw)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
