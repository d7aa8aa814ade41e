// Package usecase orchestrates the admin-facing operations across the
// lower-level components: persistence, compilation, the handler registry,
// and the route index never talk to each other directly — each use case
// coordinates exactly the sequence spec.md describes for one admin
// operation.
package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/compiler"
	"github.com/aras-services/native-gateway/internal/dispatch"
	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/registry"
)

// EndpointUsecase implements the admin lifecycle for endpoints: register a
// route, compile and load its handler, swap it in place, and retire it.
type EndpointUsecase struct {
	repo     domain.EndpointRepository
	compiler *compiler.Compiler
	handlers *registry.Registry
	routes   *dispatch.RouteIndex
	logger   *zap.Logger
}

func NewEndpointUsecase(repo domain.EndpointRepository, compiler *compiler.Compiler, handlers *registry.Registry, routes *dispatch.RouteIndex, logger *zap.Logger) *EndpointUsecase {
	return &EndpointUsecase{repo: repo, compiler: compiler, handlers: handlers, routes: routes, logger: logger}
}

// Register creates the route record and publishes it into the route index.
// No handler is loaded yet — the endpoint returns 503 via ErrNotLoaded
// until Compile+Start runs.
func (u *EndpointUsecase) Register(ctx context.Context, key domain.RouteKey) (*domain.Endpoint, error) {
	e := &domain.Endpoint{ID: domain.NewEndpointID(), RouteKey: key}
	if err := u.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	u.routes.Add(key, e.ID)
	return e, nil
}

// Compile builds the handler source into a loadable artifact without
// publishing it. The caller invokes Start or Swap next.
func (u *EndpointUsecase) Compile(ctx context.Context, endpointID, sourceCode string) (string, error) {
	return u.compiler.Compile(ctx, endpointID, sourceCode)
}

// Start loads a freshly compiled artifact for an endpoint that has no
// currently active image.
func (u *EndpointUsecase) Start(endpointID, artifactPath string) error {
	return u.handlers.Load(endpointID, artifactPath)
}

// Swap replaces the active image immediately; the retired image drains
// with no deadline.
func (u *EndpointUsecase) Swap(endpointID, artifactPath string) (registry.SwapResult, error) {
	return u.handlers.Swap(endpointID, artifactPath)
}

// SwapGraceful replaces the active image, forcing a drain deadline on the
// retired one.
func (u *EndpointUsecase) SwapGraceful(endpointID, artifactPath string, deadline time.Duration) (registry.SwapResult, error) {
	return u.handlers.SwapGraceful(endpointID, artifactPath, deadline)
}

// Unload retires the active image and drops the route from the index, so
// new requests see 404 immediately while in-flight ones finish draining.
func (u *EndpointUsecase) Unload(ctx context.Context, endpointID string) (<-chan struct{}, error) {
	e, err := u.repo.Get(ctx, endpointID)
	if err != nil {
		return nil, err
	}
	done, err := u.handlers.Unload(endpointID)
	if err != nil {
		return nil, err
	}
	u.routes.Remove(e.RouteKey)
	return done, nil
}

// Remove unloads (if loaded) and deletes the persisted route record.
func (u *EndpointUsecase) Remove(ctx context.Context, endpointID string) error {
	e, err := u.repo.Get(ctx, endpointID)
	if err != nil {
		return err
	}
	if _, err := u.handlers.Unload(endpointID); err != nil && err != domain.ErrNotLoaded {
		return err
	}
	u.routes.Remove(e.RouteKey)
	return u.repo.Delete(ctx, endpointID)
}

func (u *EndpointUsecase) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	return u.repo.Get(ctx, id)
}

func (u *EndpointUsecase) List(ctx context.Context) ([]*domain.Endpoint, error) {
	return u.repo.List(ctx)
}

func (u *EndpointUsecase) Stats() registry.Stats {
	return u.handlers.Stats()
}
