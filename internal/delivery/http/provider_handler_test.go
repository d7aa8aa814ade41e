package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider"
	"github.com/aras-services/native-gateway/internal/usecase"
)

type memProviderRepo struct {
	byID map[uuid.UUID]*domain.ProviderDescriptor
}

func newMemProviderRepo() *memProviderRepo {
	return &memProviderRepo{byID: make(map[uuid.UUID]*domain.ProviderDescriptor)}
}
func (r *memProviderRepo) Create(ctx context.Context, d *domain.ProviderDescriptor) error {
	r.byID[d.ID] = d
	return nil
}
func (r *memProviderRepo) Update(ctx context.Context, d *domain.ProviderDescriptor) error {
	r.byID[d.ID] = d
	return nil
}
func (r *memProviderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}
func (r *memProviderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.ProviderDescriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return d, nil
}
func (r *memProviderRepo) GetByName(ctx context.Context, name string) (*domain.ProviderDescriptor, error) {
	for _, d := range r.byID {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, domain.ErrProviderNotFound
}
func (r *memProviderRepo) List(ctx context.Context) ([]*domain.ProviderDescriptor, error) {
	out := make([]*domain.ProviderDescriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	return out, nil
}

func newTestProviderHandler() (*ProviderHandler, chi.Router) {
	repo := newMemProviderRepo()
	reg := provider.NewRegistry(repo, 4, zap.NewNop())
	u := usecase.NewProviderUsecase(reg)
	h := NewProviderHandler(u)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, r
}

func TestCreateProviderRedactsSecretsInResponse(t *testing.T) {
	_, router := newTestProviderHandler()

	body := strings.NewReader(`{"name":"primary-db","kind":"database","subtype":"postgres","config":{"password":"hunter2","host":"db.internal"}}`)
	req := httptest.NewRequest(http.MethodPost, "/providers/", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Config map[string]string `json:"config"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "***", resp.Data.Config["password"])
	assert.Equal(t, "db.internal", resp.Data.Config["host"])
}

func TestCreateProviderRejectsMissingRequiredFields(t *testing.T) {
	_, router := newTestProviderHandler()

	body := strings.NewReader(`{"name":"primary-db"}`)
	req := httptest.NewRequest(http.MethodPost, "/providers/", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownProviderReturns404(t *testing.T) {
	_, router := newTestProviderHandler()

	req := httptest.NewRequest(http.MethodGet, "/providers/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActiveInfoOnEmptyRegistryReturnsEmptyList(t *testing.T) {
	_, router := newTestProviderHandler()

	req := httptest.NewRequest(http.MethodGet, "/providers/active", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
}
