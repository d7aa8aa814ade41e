package provider

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider/actor"
)

// fakeRepo is an in-memory domain.ProviderRepository for exercising the
// Registry's activation lifecycle without a database.
type fakeRepo struct {
	byID map[uuid.UUID]*domain.ProviderDescriptor
}

func newFakeRepo(descs ...*domain.ProviderDescriptor) *fakeRepo {
	r := &fakeRepo{byID: make(map[uuid.UUID]*domain.ProviderDescriptor)}
	for _, d := range descs {
		r.byID[d.ID] = d
	}
	return r
}

func (r *fakeRepo) Create(ctx context.Context, d *domain.ProviderDescriptor) error {
	r.byID[d.ID] = d
	return nil
}
func (r *fakeRepo) Update(ctx context.Context, d *domain.ProviderDescriptor) error {
	r.byID[d.ID] = d
	return nil
}
func (r *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}
func (r *fakeRepo) Get(ctx context.Context, id uuid.UUID) (*domain.ProviderDescriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return d, nil
}
func (r *fakeRepo) GetByName(ctx context.Context, name string) (*domain.ProviderDescriptor, error) {
	for _, d := range r.byID {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, domain.ErrProviderNotFound
}
func (r *fakeRepo) List(ctx context.Context) ([]*domain.ProviderDescriptor, error) {
	out := make([]*domain.ProviderDescriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	return out, nil
}

// withFakeActivator swaps the real database activator for a fake in-memory
// one for the duration of a test, restoring it on cleanup.
func withFakeActivator(t *testing.T, spawn activator) {
	t.Helper()
	orig := activators[domain.ProviderKindDatabase]
	activators[domain.ProviderKindDatabase] = spawn
	t.Cleanup(func() { activators[domain.ProviderKindDatabase] = orig })
}

func echoActivator(ctx context.Context, desc *domain.ProviderDescriptor, inboxDepth int, logger *zap.Logger) (*actor.Actor, error) {
	handle := func(ctx context.Context, op string, args []byte) ([]byte, error) {
		return args, nil
	}
	test := func(ctx context.Context) (time.Duration, error) { return time.Millisecond, nil }
	info := func() domain.ConnectionInfo { return domain.ConnectionInfo{Kind: desc.Kind, Subtype: desc.Subtype} }
	return actor.Spawn(desc.Name, desc.Kind, inboxDepth, handle, test, info, func() {}, logger), nil
}

func TestActivateThenResolveSucceeds(t *testing.T) {
	withFakeActivator(t, echoActivator)
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: true}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())

	require.NoError(t, reg.Activate(context.Background(), desc.ID.String(), false))

	a, err := reg.Resolve("primary-db", domain.ProviderKindDatabase)
	require.NoError(t, err)
	reply, err := a.Send(context.Background(), "noop", []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), reply)
}

func TestActivateTwiceReturnsAlreadyOn(t *testing.T) {
	withFakeActivator(t, echoActivator)
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: true}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())

	require.NoError(t, reg.Activate(context.Background(), desc.ID.String(), false))
	err := reg.Activate(context.Background(), desc.ID.String(), false)
	assert.ErrorIs(t, err, domain.ErrProviderAlreadyOn)
}

func TestResolveWrongKindFails(t *testing.T) {
	withFakeActivator(t, echoActivator)
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: true}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())
	require.NoError(t, reg.Activate(context.Background(), desc.ID.String(), false))

	_, err := reg.Resolve("primary-db", domain.ProviderKindCache)
	assert.ErrorIs(t, err, domain.ErrProviderWrongKind)
}

func TestResolveUnknownNameFails(t *testing.T) {
	reg := NewRegistry(newFakeRepo(), 4, zap.NewNop())
	_, err := reg.Resolve("ghost", domain.ProviderKindDatabase)
	assert.ErrorIs(t, err, domain.ErrProviderNotActive)
}

func TestDeactivateStopsActorAndAllowsReactivation(t *testing.T) {
	withFakeActivator(t, echoActivator)
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: true}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())
	require.NoError(t, reg.Activate(context.Background(), desc.ID.String(), false))

	require.NoError(t, reg.Deactivate(context.Background(), desc.ID.String()))
	_, err := reg.Resolve("primary-db", domain.ProviderKindDatabase)
	assert.ErrorIs(t, err, domain.ErrProviderNotActive)

	require.NoError(t, reg.Activate(context.Background(), desc.ID.String(), false))
}

func TestDeactivateWhenNotActiveFails(t *testing.T) {
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: true}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())
	err := reg.Deactivate(context.Background(), desc.ID.String())
	assert.ErrorIs(t, err, domain.ErrProviderNotActive)
}

func TestTestConnectionDelegatesToLiveActor(t *testing.T) {
	withFakeActivator(t, echoActivator)
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: true}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())
	require.NoError(t, reg.Activate(context.Background(), desc.ID.String(), false))

	assert.NoError(t, reg.Test(context.Background(), desc.ID.String()))
}

func TestActivateDisabledWithoutForceFails(t *testing.T) {
	withFakeActivator(t, echoActivator)
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: false}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())

	err := reg.Activate(context.Background(), desc.ID.String(), false)
	assert.ErrorIs(t, err, domain.ErrProviderDisabled)

	_, resolveErr := reg.Resolve("primary-db", domain.ProviderKindDatabase)
	assert.ErrorIs(t, resolveErr, domain.ErrProviderNotActive)
}

func TestActivateDisabledWithForceSucceeds(t *testing.T) {
	withFakeActivator(t, echoActivator)
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: false}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())

	require.NoError(t, reg.Activate(context.Background(), desc.ID.String(), true))

	_, err := reg.Resolve("primary-db", domain.ProviderKindDatabase)
	assert.NoError(t, err)
}

func TestTestConnectionSpawnsTransientWhenNotActive(t *testing.T) {
	withFakeActivator(t, echoActivator)
	desc := &domain.ProviderDescriptor{ID: uuid.New(), Name: "primary-db", Kind: domain.ProviderKindDatabase, Subtype: "postgres", Enabled: true}
	reg := NewRegistry(newFakeRepo(desc), 4, zap.NewNop())

	assert.NoError(t, reg.Test(context.Background(), desc.ID.String()))
	_, err := reg.Resolve("primary-db", domain.ProviderKindDatabase)
	assert.ErrorIs(t, err, domain.ErrProviderNotActive)
}
