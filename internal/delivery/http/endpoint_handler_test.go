package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/dispatch"
	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/registry"
	"github.com/aras-services/native-gateway/internal/usecase"
)

type memEndpointRepo struct {
	byID map[string]*domain.Endpoint
}

func newMemEndpointRepo() *memEndpointRepo {
	return &memEndpointRepo{byID: make(map[string]*domain.Endpoint)}
}
func (r *memEndpointRepo) Create(ctx context.Context, e *domain.Endpoint) error {
	r.byID[e.ID] = e
	return nil
}
func (r *memEndpointRepo) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}
func (r *memEndpointRepo) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	return e, nil
}
func (r *memEndpointRepo) List(ctx context.Context) ([]*domain.Endpoint, error) {
	out := make([]*domain.Endpoint, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	return out, nil
}

func newTestEndpointHandler() (*EndpointHandler, chi.Router) {
	repo := newMemEndpointRepo()
	routes := dispatch.NewRouteIndex()
	handlers := registry.New(zap.NewNop())
	u := usecase.NewEndpointUsecase(repo, nil, handlers, routes, zap.NewNop())
	h := NewEndpointHandler(u)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, r
}

func TestRegisterEndpointReturnsCreatedRecord(t *testing.T) {
	_, router := newTestEndpointHandler()

	body := strings.NewReader(`{"domain":"orders","method":"GET","path_pattern":"/orders/{id}"}`)
	req := httptest.NewRequest(http.MethodPost, "/endpoints/", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestRegisterEndpointRejectsMissingFields(t *testing.T) {
	_, router := newTestEndpointHandler()

	body := strings.NewReader(`{"domain":"orders"}`)
	req := httptest.NewRequest(http.MethodPost, "/endpoints/", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownEndpointReturns404(t *testing.T) {
	_, router := newTestEndpointHandler()

	req := httptest.NewRequest(http.MethodGet, "/endpoints/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartUnknownEndpointReturnsLoadError(t *testing.T) {
	_, router := newTestEndpointHandler()

	body := strings.NewReader(`{"artifact_path":"/tmp/does-not-exist.so"}`)
	req := httptest.NewRequest(http.MethodPost, "/endpoints/ghost/start", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestStatsReturnsEmptyRegistrySnapshot(t *testing.T) {
	_, router := newTestEndpointHandler()

	req := httptest.NewRequest(http.MethodGet, "/endpoints/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
}
