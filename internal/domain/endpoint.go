package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RouteKey is the (domain, method, path-pattern) tuple the Dispatcher
// indexes on. Path patterns use chi's literal/{param} segment grammar.
type RouteKey struct {
	Domain      string `json:"domain" db:"domain"`
	Method      string `json:"method" db:"method" validate:"required"`
	PathPattern string `json:"path_pattern" db:"path_pattern" validate:"required"`
}

// Endpoint is the persisted route record. ID is the stable opaque string
// used both as the registry key and as the artifact basename component.
type Endpoint struct {
	ID        string    `json:"id" db:"id"`
	RouteKey  RouteKey  `json:"route_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewEndpointID mints a stable opaque endpoint identity.
func NewEndpointID() string {
	return uuid.NewString()
}

// EndpointRepository persists endpoint route records independent of
// whether an image is currently loaded for that id.
type EndpointRepository interface {
	Create(ctx context.Context, e *Endpoint) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Endpoint, error)
	List(ctx context.Context) ([]*Endpoint, error)
}

// Request is the value crossing the ABI boundary into handler code.
type Request struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Query      map[string]string `json:"query,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	PathParams map[string]string `json:"path_params,omitempty"`
	RequestID  string            `json:"request_id"`
}

// Response is the value handler code returns across the ABI boundary.
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}
