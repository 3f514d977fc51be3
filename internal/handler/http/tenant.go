package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crescendolabs/identity/internal/service"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
	"github.com/crescendolabs/identity/pkg/httputil"
	"github.com/crescendolabs/identity/pkg/validator"
)

// TenantHandler handles the admin tenant management endpoints.
type TenantHandler struct {
	tenants *service.TenantService
	logger  *slog.Logger
}

// NewTenantHandler creates a new tenant HTTP handler.
func NewTenantHandler(tenants *service.TenantService, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{tenants: tenants, logger: logger}
}

// CreateTenantRequest is the JSON request body for creating a tenant.
type CreateTenantRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Address string `json:"address" validate:"required,min=1,max=255"`
}

// UpdateTenantRequest is the JSON request body for updating a tenant.
type UpdateTenantRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=100"`
	Address *string `json:"address" validate:"omitempty,min=1,max=255"`
}

// Create handles POST /api/v1/tenants.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	tenant, err := h.tenants.Create(r.Context(), service.CreateTenantInput{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: IDResponse{ID: tenant.ID}})
}

// List handles GET /api/v1/tenants.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tenants})
}

// Get handles GET /api/v1/tenants/{id}.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	tenant, err := h.tenants.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tenant})
}

// Update handles PATCH /api/v1/tenants/{id}.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	tenant, err := h.tenants.Update(r.Context(), id, service.UpdateTenantInput{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tenant})
}

// Delete handles DELETE /api/v1/tenants/{id}.
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.tenants.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: IDResponse{ID: id}})
}
