// Package handler exposes the rules-authoring admin API.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visado/internal/rules/authoring"
	"visado/internal/rules/models"
	"visado/pkg/platform/httputil"
	"visado/pkg/requestcontext"
)

// Service defines the interface for rules-authoring operations.
type Service interface {
	CreateVisaType(ctx context.Context, jurisdiction, code, name string) (*models.VisaType, error)
	ListVisaTypes(ctx context.Context, activeOnly bool) ([]models.VisaType, error)
	PublishVersion(ctx context.Context, req authoring.PublishRequest) (*models.RuleVersion, error)
}

// Handler wires admin endpoints to the authoring service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a rules handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts admin endpoints on the router. Callers are expected to
// wrap the router with admin authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/visa-types", h.HandleCreateVisaType)
	r.Get("/admin/visa-types", h.HandleListVisaTypes)
	r.Post("/admin/rule-versions", h.HandlePublishVersion)
}

// HandleCreateVisaType handles POST /admin/visa-types requests.
func (h *Handler) HandleCreateVisaType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateVisaTypeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	vt, err := h.service.CreateVisaType(ctx, req.Jurisdiction, req.Code, req.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "visa type creation failed",
			"request_id", requestID,
			"jurisdiction", req.Jurisdiction,
			"code", req.Code,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "visa type created",
		"request_id", requestID,
		"visa_type_id", vt.ID,
		"jurisdiction", vt.Jurisdiction,
		"code", vt.Code,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromVisaType(vt))
}

// HandleListVisaTypes handles GET /admin/visa-types requests.
func (h *Handler) HandleListVisaTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activeOnly := r.URL.Query().Get("active") == "true"

	types, err := h.service.ListVisaTypes(ctx, activeOnly)
	if err != nil {
		h.logger.ErrorContext(ctx, "visa type listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := VisaTypeListResponse{VisaTypes: make([]VisaTypeResponse, 0, len(types))}
	for i := range types {
		resp.VisaTypes = append(resp.VisaTypes, *FromVisaType(&types[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandlePublishVersion handles POST /admin/rule-versions requests.
func (h *Handler) HandlePublishVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PublishVersionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	version, err := h.service.PublishVersion(ctx, req.ParsedRequest())
	if err != nil {
		h.logger.ErrorContext(ctx, "rule version publish failed",
			"request_id", requestID,
			"visa_type_id", req.VisaTypeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "rule version published",
		"request_id", requestID,
		"visa_type_id", req.VisaTypeID,
		"rule_version_id", version.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRuleVersion(version))
}
