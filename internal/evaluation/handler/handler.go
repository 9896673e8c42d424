// Package handler exposes the evaluation API.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"visado/internal/evaluation"
	id "visado/pkg/domain"
	"visado/pkg/platform/httputil"
	"visado/pkg/requestcontext"
)

// Service defines the interface for evaluation operations.
type Service interface {
	Run(ctx context.Context, caseID id.CaseID, visaTypeID id.VisaTypeID, at time.Time) (*evaluation.Result, error)
}

// Handler wires evaluation endpoints to the evaluation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an evaluation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts evaluation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/evaluations", h.HandleEvaluate)
}

// HandleEvaluate handles POST /evaluations requests.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Run(ctx, req.ParsedCaseID(), req.ParsedVisaTypeID(), req.ParsedAt())
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluation failed",
			"request_id", requestID,
			"case_id", req.CaseID,
			"visa_type_id", req.VisaTypeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evaluation served",
		"request_id", requestID,
		"case_id", req.CaseID,
		"visa_type_id", req.VisaTypeID,
		"outcome", result.Outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
