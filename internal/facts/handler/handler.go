// Package handler exposes the case fact API.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"visado/internal/facts"
	"visado/internal/facts/models"
	id "visado/pkg/domain"
	dErrors "visado/pkg/domain-errors"
	"visado/pkg/platform/httputil"
	"visado/pkg/requestcontext"
)

// Service defines the interface for fact operations.
type Service interface {
	AppendFacts(ctx context.Context, caseID id.CaseID, inputs []facts.FactInput) error
	ListFacts(ctx context.Context, caseID id.CaseID) ([]models.Fact, error)
}

// Handler wires fact endpoints to the fact service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a fact handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts fact endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/facts", h.HandleAppendFacts)
	r.Get("/cases/{caseID}/facts", h.HandleListFacts)
}

// FactResponse is the HTTP representation of a submitted fact.
type FactResponse struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// FactListResponse is the HTTP response for GET /cases/{caseID}/facts.
type FactListResponse struct {
	CaseID string         `json:"case_id"`
	Facts  []FactResponse `json:"facts"`
}

// HandleAppendFacts handles POST /cases/{caseID}/facts requests.
func (h *Handler) HandleAppendFacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, ok := h.caseIDFromURL(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[AppendFactsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.AppendFacts(ctx, caseID, req.ParsedFacts()); err != nil {
		h.logger.ErrorContext(ctx, "fact submission failed",
			"request_id", requestID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "facts submitted",
		"request_id", requestID,
		"case_id", caseID,
		"count", len(req.Facts),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleListFacts handles GET /cases/{caseID}/facts requests.
func (h *Handler) HandleListFacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, ok := h.caseIDFromURL(w, r)
	if !ok {
		return
	}

	history, err := h.service.ListFacts(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := FactListResponse{
		CaseID: caseID.String(),
		Facts:  make([]FactResponse, 0, len(history)),
	}
	for _, f := range history {
		resp.Facts = append(resp.Facts, FactResponse{
			Key:       f.Key,
			Value:     f.Value.Interface(),
			Source:    string(f.Source),
			CreatedAt: f.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) caseIDFromURL(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid case ID"))
		return id.CaseID{}, false
	}
	return caseID, true
}
