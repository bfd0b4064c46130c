package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dcbgate/internal/audit"
	"dcbgate/internal/catalog"
	"dcbgate/internal/platform/middleware"
	"dcbgate/internal/registry"
	dErrors "dcbgate/pkg/domain-errors"
)

// Registry is the operator lifecycle surface the management API drives.
type Registry interface {
	List() []registry.State
	Enable(ctx context.Context, code, actorID, reason string) error
	Disable(ctx context.Context, code, actorID, reason string) error
	BulkEnable(ctx context.Context, codes []string, actorID, reason string) []registry.BulkResult
	UpdateHealth(ctx context.Context, code string, score float64) error
}

// Handler serves the operator management API. Unlike the billing protocol it
// is a plain JSON API with conventional HTTP status codes.
type Handler struct {
	registry  Registry
	catalog   *catalog.Catalog
	audit     audit.Store
	validator TokenValidator
	logger    *slog.Logger
}

func New(reg Registry, cat *catalog.Catalog, auditStore audit.Store, validator TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		registry:  reg,
		catalog:   cat,
		audit:     auditStore,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts the management routes under /admin.
func (h *Handler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.ClientMetadata)
	adminRouter.Use(RequireAuth(h.validator, h.logger))

	adminRouter.Get("/operators", h.handleListOperators)
	adminRouter.Get("/operators/{code}", h.handleGetOperator)
	adminRouter.Post("/operators/{code}/enable", h.handleEnable)
	adminRouter.Post("/operators/{code}/disable", h.handleDisable)
	adminRouter.Post("/operators/bulk-enable", h.handleBulkEnable)
	adminRouter.Get("/operators/{code}/audit", h.handleAuditTrail)

	r.Mount("/admin", adminRouter)
}

type operatorView struct {
	registry.State
	Name         string   `json:"name"`
	Country      string   `json:"country"`
	Currency     string   `json:"currency"`
	Family       string   `json:"family,omitempty"`
	Capabilities []string `json:"capabilities"`
}

func (h *Handler) handleListOperators(w http.ResponseWriter, r *http.Request) {
	states := h.registry.List()
	views := make([]operatorView, 0, len(states))
	for _, state := range states {
		views = append(views, h.view(state))
	}
	h.writeJSON(r, w, http.StatusOK, map[string]any{"operators": views})
}

func (h *Handler) handleGetOperator(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	for _, state := range h.registry.List() {
		if state.Code == code {
			h.writeJSON(r, w, http.StatusOK, h.view(state))
			return
		}
	}
	h.writeError(r, w, dErrors.New(dErrors.CodeOperatorNotFound, "unknown operator "+code))
}

type lifecycleRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleEnable(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	req, err := decodeLifecycle(r)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	if err := h.registry.Enable(r.Context(), code, h.actor(r), req.Reason); err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]any{"code": code, "enabled": true})
}

func (h *Handler) handleDisable(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	req, err := decodeLifecycle(r)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	if err := h.registry.Disable(r.Context(), code, h.actor(r), req.Reason); err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]any{"code": code, "enabled": false})
}

type bulkEnableRequest struct {
	Codes  []string `json:"codes"`
	Reason string   `json:"reason"`
}

func (h *Handler) handleBulkEnable(w http.ResponseWriter, r *http.Request) {
	var req bulkEnableRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(r, w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
			return
		}
	}
	results := h.registry.BulkEnable(r.Context(), req.Codes, h.actor(r), req.Reason)
	h.writeJSON(r, w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	records, err := h.audit.ListByOperator(r.Context(), code, 100)
	if err != nil {
		h.writeError(r, w, dErrors.Wrap(err, dErrors.CodeInternal, "load audit trail"))
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) view(state registry.State) operatorView {
	v := operatorView{State: state}
	if def, err := h.catalog.Lookup(state.Code); err == nil {
		v.Name = def.Name
		v.Country = def.Country
		v.Currency = def.Currency
		v.Family = def.Family
		for _, cap := range def.Capabilities {
			v.Capabilities = append(v.Capabilities, string(cap))
		}
	}
	return v
}

// actor combines the authenticated admin identity with the device captured by
// the auth middleware, so lifecycle audit records carry both.
func (h *Handler) actor(r *http.Request) string {
	adminID := GetAdminID(r.Context())
	if adminID == "" {
		return "unknown"
	}
	return adminID
}

func decodeLifecycle(r *http.Request) (lifecycleRequest, error) {
	var req lifecycleRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, dErrors.New(dErrors.CodeValidation, "invalid request body")
	}
	return req, nil
}

func (h *Handler) writeJSON(r *http.Request, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response",
			"error", err, "request_id", middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation:
		status = http.StatusBadRequest
	case dErrors.CodeOperatorNotFound:
		status = http.StatusNotFound
	case dErrors.CodeUnauthorized:
		status = http.StatusUnauthorized
	}
	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "management request failed",
			"error", err, "request_id", middleware.GetRequestID(r.Context()))
	}
	h.writeJSON(r, w, status, map[string]string{"error": err.Error()})
}
