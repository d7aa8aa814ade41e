package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/usecase"
)

// EndpointHandler exposes the admin hooks for the endpoint lifecycle:
// register a route, compile source, publish or swap the compiled image,
// and retire it. This is a thin pass-through — it never touches the
// registry or compiler directly, only through EndpointUsecase.
type EndpointHandler struct {
	usecase   *usecase.EndpointUsecase
	validator *validator.Validate
}

func NewEndpointHandler(u *usecase.EndpointUsecase) *EndpointHandler {
	return &EndpointHandler{usecase: u, validator: validator.New()}
}

func (h *EndpointHandler) RegisterRoutes(r chi.Router) {
	r.Route("/endpoints", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Register)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Remove)
		r.Post("/{id}/compile", h.Compile)
		r.Post("/{id}/start", h.Start)
		r.Post("/{id}/swap", h.Swap)
		r.Post("/{id}/unload", h.Unload)
		r.Get("/stats", h.Stats)
	})
}

type registerRequest struct {
	Domain      string `json:"domain" validate:"required"`
	Method      string `json:"method" validate:"required"`
	PathPattern string `json:"path_pattern" validate:"required"`
}

func (h *EndpointHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteValidationError(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	e, err := h.usecase.Register(r.Context(), domain.RouteKey{
		Domain:      req.Domain,
		Method:      req.Method,
		PathPattern: req.PathPattern,
	})
	if err != nil {
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, e, "endpoint registered")
}

type compileRequest struct {
	Source string `json:"source" validate:"required"`
}

func (h *EndpointHandler) Compile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteValidationError(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	artifact, err := h.usecase.Compile(r.Context(), id, req.Source)
	if err != nil {
		var compileErr *domain.CompileError
		if errors.As(err, &compileErr) {
			WriteError(w, http.StatusUnprocessableEntity, "compile_failed", compileErr)
			return
		}
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, map[string]string{"artifact": artifact}, "compiled")
}

type loadRequest struct {
	ArtifactPath string `json:"artifact_path" validate:"required"`
}

func (h *EndpointHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteValidationError(w, "invalid request body")
		return
	}

	if err := h.usecase.Start(id, req.ArtifactPath); err != nil {
		h.writeLoadError(w, err)
		return
	}
	WriteSuccess(w, nil, "handler started")
}

type swapRequest struct {
	ArtifactPath   string `json:"artifact_path" validate:"required"`
	DrainDeadlineS int    `json:"drain_deadline_seconds,omitempty"`
}

func (h *EndpointHandler) Swap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteValidationError(w, "invalid request body")
		return
	}

	var err error
	if req.DrainDeadlineS > 0 {
		res, e := h.usecase.SwapGraceful(id, req.ArtifactPath, time.Duration(req.DrainDeadlineS)*time.Second)
		err = e
		if e == nil {
			WriteSuccess(w, res, "swapped")
			return
		}
	} else {
		res, e := h.usecase.Swap(id, req.ArtifactPath)
		err = e
		if e == nil {
			WriteSuccess(w, res, "swapped")
			return
		}
	}
	h.writeLoadError(w, err)
}

func (h *EndpointHandler) Unload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	done, err := h.usecase.Unload(r.Context(), id)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	select {
	case <-done:
		WriteSuccess(w, map[string]bool{"drained": true}, "unloaded")
	default:
		WriteSuccess(w, map[string]bool{"drained": false}, "draining")
	}
}

func (h *EndpointHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.usecase.Remove(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrRouteNotFound) {
			WriteNotFound(w, "endpoint not found")
			return
		}
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, nil, "endpoint removed")
}

func (h *EndpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := h.usecase.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRouteNotFound) {
			WriteNotFound(w, "endpoint not found")
			return
		}
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, e, "")
}

func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.usecase.List(r.Context())
	if err != nil {
		WriteInternalError(w, err)
		return
	}
	WriteSuccess(w, endpoints, "")
}

func (h *EndpointHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.usecase.Stats(), "")
}

func (h *EndpointHandler) writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotLoaded):
		WriteNotFound(w, "endpoint not loaded")
	case errors.Is(err, domain.ErrAlreadyLoaded):
		WriteError(w, http.StatusConflict, "already_loaded", err)
	case errors.Is(err, domain.ErrRouteNotFound):
		WriteNotFound(w, "endpoint not found")
	default:
		var loadErr *domain.LoadError
		if errors.As(err, &loadErr) {
			WriteError(w, http.StatusUnprocessableEntity, "load_failed", loadErr)
			return
		}
		WriteInternalError(w, err)
	}
}
