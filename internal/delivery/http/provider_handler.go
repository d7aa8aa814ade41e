package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/usecase"
)

// ProviderHandler exposes the admin hooks for the Service Provider
// Registry: descriptor CRUD plus activate/deactivate/test_connection.
type ProviderHandler struct {
	usecase   *usecase.ProviderUsecase
	validator *validator.Validate
}

func NewProviderHandler(u *usecase.ProviderUsecase) *ProviderHandler {
	return &ProviderHandler{usecase: u, validator: validator.New()}
}

func (h *ProviderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/providers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/active", h.ActiveInfo)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/activate", h.Activate)
		r.Post("/{id}/deactivate", h.Deactivate)
		r.Post("/{id}/test", h.Test)
	})
}

type providerRequest struct {
	Name    string            `json:"name" validate:"required"`
	Kind    string            `json:"kind" validate:"required"`
	Subtype string            `json:"subtype" validate:"required"`
	Config  map[string]string `json:"config"`
	Enabled bool              `json:"enabled"`
}

func (h *ProviderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteValidationError(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	d := &domain.ProviderDescriptor{
		Name:    req.Name,
		Kind:    domain.ProviderKind(req.Kind),
		Subtype: req.Subtype,
		Config:  req.Config,
		Enabled: req.Enabled,
	}
	if err := h.usecase.Create(r.Context(), d); err != nil {
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, d.Redact(), "provider created")
}

func (h *ProviderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteValidationError(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	existing, err := h.usecase.Get(r.Context(), id)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Subtype = req.Subtype
	existing.Config = req.Config
	existing.Enabled = req.Enabled
	if err := h.usecase.Update(r.Context(), &existing); err != nil {
		h.writeProviderError(w, err)
		return
	}
	WriteSuccess(w, existing.Redact(), "provider updated")
}

func (h *ProviderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.usecase.Delete(r.Context(), id); err != nil {
		h.writeProviderError(w, err)
		return
	}
	WriteSuccess(w, nil, "provider deleted")
}

func (h *ProviderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.usecase.Get(r.Context(), id)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}
	WriteSuccess(w, d, "")
}

func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	descs, err := h.usecase.List(r.Context())
	if err != nil {
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, descs, "")
}

func (h *ProviderHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	force := r.URL.Query().Get("force") == "true"
	if err := h.usecase.Activate(r.Context(), id, force); err != nil {
		h.writeProviderError(w, err)
		return
	}
	WriteSuccess(w, nil, "provider activated")
}

func (h *ProviderHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.usecase.Deactivate(r.Context(), id); err != nil {
		h.writeProviderError(w, err)
		return
	}
	WriteSuccess(w, nil, "provider deactivated")
}

func (h *ProviderHandler) Test(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.usecase.Test(r.Context(), id); err != nil {
		var connErr *domain.ConnectionError
		if errors.As(err, &connErr) {
			WriteError(w, http.StatusServiceUnavailable, "connection_failed", connErr)
			return
		}
		h.writeProviderError(w, err)
		return
	}
	WriteSuccess(w, nil, "connection ok")
}

func (h *ProviderHandler) ActiveInfo(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.usecase.ActiveInfo(), "")
}

func (h *ProviderHandler) writeProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProviderNotFound):
		WriteNotFound(w, "provider not found")
	case errors.Is(err, domain.ErrProviderNotActive):
		WriteError(w, http.StatusConflict, "not_active", err)
	case errors.Is(err, domain.ErrProviderAlreadyOn):
		WriteError(w, http.StatusConflict, "already_active", err)
	case errors.Is(err, domain.ErrProviderDisabled):
		WriteError(w, http.StatusConflict, "disabled", err)
	case errors.Is(err, domain.ErrUnknownProviderKind):
		WriteValidationError(w, err.Error())
	default:
		WriteInternalError(w, err)
	}
}
