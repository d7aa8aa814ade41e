// Package provider implements the Service Provider Registry (spec §4.5):
// the indirection by which handler code reaches backend resources. It
// tracks persisted descriptors for every configured provider and holds
// live actor handles for the ones currently activated.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider/actor"
	"github.com/aras-services/native-gateway/internal/provider/cache"
	"github.com/aras-services/native-gateway/internal/provider/database"
	"github.com/aras-services/native-gateway/internal/provider/email"
	"github.com/aras-services/native-gateway/internal/provider/filetransfer"
	"github.com/aras-services/native-gateway/internal/provider/storage"
)

type activator func(ctx context.Context, desc *domain.ProviderDescriptor, inboxDepth int, logger *zap.Logger) (*actor.Actor, error)

var activators = map[domain.ProviderKind]activator{
	domain.ProviderKindDatabase:     database.Activate,
	domain.ProviderKindCache:        cache.Activate,
	domain.ProviderKindStorage:      storage.Activate,
	domain.ProviderKindEmail:        email.Activate,
	domain.ProviderKindFileTransfer: filetransfer.Activate,
}

// Registry is the Service Provider Registry (C5).
type Registry struct {
	repo       domain.ProviderRepository
	inboxDepth int
	logger     *zap.Logger

	mu     sync.RWMutex
	active map[string]*actor.Actor // keyed by provider name
}

func NewRegistry(repo domain.ProviderRepository, inboxDepth int, logger *zap.Logger) *Registry {
	if inboxDepth <= 0 {
		inboxDepth = actor.DefaultInboxDepth
	}
	return &Registry{
		repo:       repo,
		inboxDepth: inboxDepth,
		logger:     logger,
		active:     make(map[string]*actor.Actor),
	}
}

func (r *Registry) List(ctx context.Context) ([]*domain.ProviderDescriptor, error) {
	return r.repo.List(ctx)
}

func (r *Registry) Get(ctx context.Context, id string) (*domain.ProviderDescriptor, error) {
	uid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	return r.repo.Get(ctx, uid)
}

func (r *Registry) Create(ctx context.Context, d *domain.ProviderDescriptor) error {
	return r.repo.Create(ctx, d)
}

func (r *Registry) Update(ctx context.Context, d *domain.ProviderDescriptor) error {
	return r.repo.Update(ctx, d)
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	uid, err := parseUUID(id)
	if err != nil {
		return err
	}
	return r.repo.Delete(ctx, uid)
}

// Activate loads the descriptor, spawns the matching Provider Actor, and
// stores the handle under the provider's name. A descriptor persisted
// with Enabled=false refuses activation unless force is set, so a
// provider an operator has deliberately disabled can't come back up
// through an ordinary activate call.
func (r *Registry) Activate(ctx context.Context, id string, force bool) error {
	uid, err := parseUUID(id)
	if err != nil {
		return err
	}
	desc, err := r.repo.Get(ctx, uid)
	if err != nil {
		return err
	}
	if !desc.Enabled && !force {
		return domain.ErrProviderDisabled
	}

	r.mu.Lock()
	if _, exists := r.active[desc.Name]; exists {
		r.mu.Unlock()
		return domain.ErrProviderAlreadyOn
	}
	r.mu.Unlock()

	spawn, ok := activators[desc.Kind]
	if !ok {
		return domain.ErrUnknownProviderKind
	}
	a, err := spawn(ctx, desc, r.inboxDepth, r.logger)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.active[desc.Name]; exists {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Stop(stopCtx)
		return domain.ErrProviderAlreadyOn
	}
	r.active[desc.Name] = a
	return nil
}

// Deactivate sends stop to the actor, waits for termination, and removes
// the handle. Commands already accepted by the actor still complete.
func (r *Registry) Deactivate(ctx context.Context, id string) error {
	uid, err := parseUUID(id)
	if err != nil {
		return err
	}
	desc, err := r.repo.Get(ctx, uid)
	if err != nil {
		return err
	}

	r.mu.Lock()
	a, exists := r.active[desc.Name]
	if exists {
		delete(r.active, desc.Name)
	}
	r.mu.Unlock()
	if !exists {
		return domain.ErrProviderNotActive
	}
	return a.Stop(ctx)
}

// Test activates a transient actor, probes it, and tears it down, or —
// when already active — delegates test_connection() to the live actor.
func (r *Registry) Test(ctx context.Context, id string) error {
	uid, err := parseUUID(id)
	if err != nil {
		return err
	}
	desc, err := r.repo.Get(ctx, uid)
	if err != nil {
		return err
	}

	r.mu.RLock()
	a, exists := r.active[desc.Name]
	r.mu.RUnlock()
	if exists {
		return a.TestConnection(ctx)
	}

	spawn, ok := activators[desc.Kind]
	if !ok {
		return domain.ErrUnknownProviderKind
	}
	transient, err := spawn(ctx, desc, r.inboxDepth, r.logger)
	if err != nil {
		return err
	}
	defer transient.Stop(ctx)
	return transient.TestConnection(ctx)
}

// Resolve finds the live actor handle for name, checking it is the
// expected kind. Used by the Handler Context (C6).
func (r *Registry) Resolve(name string, expectedKind domain.ProviderKind) (*actor.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.active[name]
	if !exists {
		return nil, domain.ErrProviderNotActive
	}
	if a.Kind() != expectedKind {
		return nil, domain.ErrProviderWrongKind
	}
	return a, nil
}

// ActiveInfo lists sanitized descriptors for every currently activated
// provider.
func (r *Registry) ActiveInfo() []domain.ConnectionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]domain.ConnectionInfo, 0, len(r.active))
	for _, a := range r.active {
		infos = append(infos, a.Info())
	}
	return infos
}

func parseUUID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid provider id %q: %w", id, err)
	}
	return u, nil
}
