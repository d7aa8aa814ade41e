package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider"
)

// ProviderUsecase is the admin-facing orchestration for the Service
// Provider Registry: descriptor CRUD plus activate/deactivate/test. It is
// a thin pass-through — the registry itself already owns the
// persistence-plus-actor-lifecycle coordination the other use cases split
// across multiple components.
type ProviderUsecase struct {
	registry *provider.Registry
}

func NewProviderUsecase(registry *provider.Registry) *ProviderUsecase {
	return &ProviderUsecase{registry: registry}
}

func (u *ProviderUsecase) Create(ctx context.Context, d *domain.ProviderDescriptor) error {
	d.ID = uuid.New()
	return u.registry.Create(ctx, d)
}

func (u *ProviderUsecase) Update(ctx context.Context, d *domain.ProviderDescriptor) error {
	return u.registry.Update(ctx, d)
}

func (u *ProviderUsecase) Delete(ctx context.Context, id string) error {
	return u.registry.Delete(ctx, id)
}

func (u *ProviderUsecase) Get(ctx context.Context, id string) (domain.ProviderDescriptor, error) {
	d, err := u.registry.Get(ctx, id)
	if err != nil {
		return domain.ProviderDescriptor{}, err
	}
	return d.Redact(), nil
}

func (u *ProviderUsecase) List(ctx context.Context) ([]domain.ProviderDescriptor, error) {
	descs, err := u.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProviderDescriptor, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.Redact())
	}
	return out, nil
}

func (u *ProviderUsecase) Activate(ctx context.Context, id string, force bool) error {
	return u.registry.Activate(ctx, id, force)
}

func (u *ProviderUsecase) Deactivate(ctx context.Context, id string) error {
	return u.registry.Deactivate(ctx, id)
}

func (u *ProviderUsecase) Test(ctx context.Context, id string) error {
	return u.registry.Test(ctx, id)
}

func (u *ProviderUsecase) ActiveInfo() []domain.ConnectionInfo {
	return u.registry.ActiveInfo()
}
