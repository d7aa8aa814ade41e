package usecase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/dispatch"
	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/registry"
)

type fakeEndpointRepo struct {
	byID map[string]*domain.Endpoint
}

func newFakeEndpointRepo() *fakeEndpointRepo {
	return &fakeEndpointRepo{byID: make(map[string]*domain.Endpoint)}
}

func (r *fakeEndpointRepo) Create(ctx context.Context, e *domain.Endpoint) error {
	r.byID[e.ID] = e
	return nil
}
func (r *fakeEndpointRepo) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}
func (r *fakeEndpointRepo) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	return e, nil
}
func (r *fakeEndpointRepo) List(ctx context.Context) ([]*domain.Endpoint, error) {
	out := make([]*domain.Endpoint, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	return out, nil
}

func newTestEndpointUsecase() (*EndpointUsecase, *fakeEndpointRepo, *dispatch.RouteIndex) {
	repo := newFakeEndpointRepo()
	routes := dispatch.NewRouteIndex()
	handlers := registry.New(zap.NewNop())
	return NewEndpointUsecase(repo, nil, handlers, routes, zap.NewNop()), repo, routes
}

func TestRegisterCreatesRecordAndPublishesRoute(t *testing.T) {
	u, repo, routes := newTestEndpointUsecase()
	key := domain.RouteKey{Domain: "orders", Method: http.MethodGet, PathPattern: "/orders/{id}"}

	e, err := u.Register(context.Background(), key)
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	_, ok := repo.byID[e.ID]
	assert.True(t, ok)

	r := httptest.NewRequest(http.MethodGet, "/orders/9", nil)
	id, _, matched := routes.Match(r)
	require.True(t, matched)
	assert.Equal(t, e.ID, id)
}

func TestUnloadOnNeverLoadedEndpointReturnsNotLoadedAndKeepsRoute(t *testing.T) {
	u, _, routes := newTestEndpointUsecase()
	key := domain.RouteKey{Domain: "orders", Method: http.MethodGet, PathPattern: "/orders/{id}"}
	e, err := u.Register(context.Background(), key)
	require.NoError(t, err)

	_, err = u.Unload(context.Background(), e.ID)
	assert.ErrorIs(t, err, domain.ErrNotLoaded)

	r := httptest.NewRequest(http.MethodGet, "/orders/9", nil)
	_, _, matched := routes.Match(r)
	assert.True(t, matched, "route must survive a failed unload")
}

func TestRemoveOnNeverLoadedEndpointDeletesRecordAndRoute(t *testing.T) {
	u, repo, routes := newTestEndpointUsecase()
	key := domain.RouteKey{Domain: "orders", Method: http.MethodGet, PathPattern: "/orders/{id}"}
	e, err := u.Register(context.Background(), key)
	require.NoError(t, err)

	require.NoError(t, u.Remove(context.Background(), e.ID))

	_, ok := repo.byID[e.ID]
	assert.False(t, ok)

	r := httptest.NewRequest(http.MethodGet, "/orders/9", nil)
	_, _, matched := routes.Match(r)
	assert.False(t, matched)
}

func TestRemoveOnUnknownEndpointReturnsRouteNotFound(t *testing.T) {
	u, _, _ := newTestEndpointUsecase()
	err := u.Remove(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func TestStatsOnEmptyRegistry(t *testing.T) {
	u, _, _ := newTestEndpointUsecase()
	stats := u.Stats()
	assert.Equal(t, 0, stats.Loaded)
}
