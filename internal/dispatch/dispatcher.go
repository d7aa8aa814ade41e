// Package dispatch implements the Request Dispatcher (spec §4.7): the HTTP
// entry point that matches an inbound request against the route index,
// builds the ABI Request, and drives it through the Handler Registry.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/handlerctx"
	"github.com/aras-services/native-gateway/internal/provider/actor"
	"github.com/aras-services/native-gateway/internal/registry"
)

// Resolver is the subset of the Service Provider Registry the in-process
// Handler Context needs to reach providers by name.
type Resolver interface {
	Resolve(name string, kind domain.ProviderKind) (*actor.Actor, error)
}

// Dispatcher is the Request Dispatcher (C7).
type Dispatcher struct {
	routes    *RouteIndex
	handlers  *registry.Registry
	providers Resolver
	logger    *zap.Logger

	// defaultTimeout bounds every request; 0 disables the bound.
	defaultTimeout time.Duration

	// maxBodyBytes caps the request body read to guard against unbounded
	// allocation from a misbehaving or malicious client.
	maxBodyBytes int64
}

const defaultMaxBodyBytes = 10 << 20 // 10 MiB

func New(routes *RouteIndex, handlers *registry.Registry, providers Resolver, defaultTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		routes:         routes,
		handlers:       handlers,
		providers:      providers,
		logger:         logger,
		defaultTimeout: defaultTimeout,
		maxBodyBytes:   defaultMaxBodyBytes,
	}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpointID, params, ok := d.routes.Match(r)
	if !ok {
		d.writeError(w, http.StatusNotFound, domain.ErrRouteNotFound)
		return
	}

	req, err := d.buildRequest(r, params)
	if err != nil {
		d.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := d.execute(r.Context(), endpointID, req)
	if errors.Is(err, domain.ErrDraining) {
		// One retry: the window between Match and Execute can race a swap
		// that begins draining the image we just resolved (spec §5).
		resp, err = d.execute(r.Context(), endpointID, req)
	}
	if err != nil {
		d.writeDispatchError(w, endpointID, err)
		return
	}

	writeResponse(w, resp)
}

func (d *Dispatcher) execute(ctx context.Context, endpointID string, req domain.Request) (domain.Response, error) {
	hostCallback := handlerctx.HostCallback(d.providers)
	hctx := handlerctx.InProcess(req.RequestID, deadlineFrom(ctx, d.defaultTimeout), d.providers)

	if d.defaultTimeout <= 0 {
		return d.handlers.Execute(ctx, endpointID, hctx, req, hostCallback)
	}
	return d.handlers.ExecuteWithTimeout(ctx, endpointID, hctx, req, hostCallback, d.defaultTimeout)
}

func (d *Dispatcher) buildRequest(r *http.Request, params map[string]string) (domain.Request, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, d.maxBodyBytes))
	if err != nil {
		return domain.Request{}, err
	}

	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}

	return domain.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      query,
		Headers:    headers,
		Body:       body,
		PathParams: params,
		RequestID:  requestIDFrom(r),
	}, nil
}

func writeResponse(w http.ResponseWriter, resp domain.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		w.Write(resp.Body)
	}
}

// retryAfterSeconds is the Retry-After hint handed back on NotLoaded/
// Draining (spec §7): both are conditions a client should expect to clear
// shortly (an admin load finishing, a swap's drain completing).
const retryAfterSeconds = "1"

func (d *Dispatcher) writeDispatchError(w http.ResponseWriter, endpointID string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotLoaded), errors.Is(err, domain.ErrDraining):
		w.Header().Set("Retry-After", retryAfterSeconds)
		d.writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, domain.ErrHandlerTimeout):
		d.writeError(w, http.StatusGatewayTimeout, err)
	default:
		var panicErr *domain.HandlerPanic
		if errors.As(err, &panicErr) {
			d.logger.Error("handler panic", zap.String("endpoint_id", endpointID), zap.Error(err))
			d.writeError(w, http.StatusInternalServerError, err)
			return
		}
		d.logger.Error("dispatch failed", zap.String("endpoint_id", endpointID), zap.Error(err))
		d.writeError(w, http.StatusInternalServerError, err)
	}
}

func (d *Dispatcher) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

func deadlineFrom(ctx context.Context, fallback time.Duration) *time.Time {
	if dl, ok := ctx.Deadline(); ok {
		return &dl
	}
	if fallback <= 0 {
		return nil
	}
	t := time.Now().Add(fallback)
	return &t
}
