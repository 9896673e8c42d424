package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"visado/internal/rules/authoring"
	"visado/internal/rules/store"
	"visado/pkg/platform/middleware/admin"
)

const adminToken = "secret-token"

func newAdminRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, err := authoring.New(store.NewInMemoryStore())
	if err != nil {
		t.Fatalf("failed to build authoring service: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(admin.RequireAdminToken(adminToken, logger))
	h.Register(r)
	return r
}

func TestAdminTokenRequired(t *testing.T) {
	router := newAdminRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/visa-types", nil)
	// No admin token header set
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when admin token missing, got %d", rec.Code)
	}
}

func TestCreateVisaTypeAndPublishViaHandlers(t *testing.T) {
	router := newAdminRouter(t)

	visaTypePayload := map[string]string{
		"jurisdiction": "UK",
		"code":         "skilled-worker",
		"name":         "Skilled Worker",
	}
	body, _ := json.Marshal(visaTypePayload)
	req := httptest.NewRequest(http.MethodPost, "/admin/visa-types", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating visa type, got %d: %s", rec.Code, rec.Body.String())
	}

	var visaTypeResp struct {
		ID       uuid.UUID `json:"id"`
		IsActive bool      `json:"is_active"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&visaTypeResp); err != nil {
		t.Fatalf("failed to decode visa type response: %v", err)
	}
	if visaTypeResp.ID == uuid.Nil {
		t.Fatalf("expected id in response")
	}
	if !visaTypeResp.IsActive {
		t.Fatalf("expected new visa type to be active")
	}

	versionPayload := map[string]any{
		"visa_type_id":   visaTypeResp.ID,
		"effective_from": "2026-04-09T00:00:00Z",
		"requirements": []map[string]any{
			{
				"code":      "min-salary",
				"rule_type": "threshold",
				"condition": map[string]any{
					">=": []any{map[string]any{"var": "salary"}, 38700},
				},
				"is_mandatory": true,
			},
		},
	}
	versionBody, _ := json.Marshal(versionPayload)
	versionReq := httptest.NewRequest(http.MethodPost, "/admin/rule-versions", bytes.NewReader(versionBody))
	versionReq.Header.Set("Content-Type", "application/json")
	versionReq.Header.Set("X-Admin-Token", adminToken)
	versionRec := httptest.NewRecorder()
	router.ServeHTTP(versionRec, versionReq)
	if versionRec.Code != http.StatusCreated {
		t.Fatalf("expected 201 publishing version, got %d: %s", versionRec.Code, versionRec.Body.String())
	}

	var versionResp struct {
		ID            uuid.UUID  `json:"id"`
		VisaTypeID    uuid.UUID  `json:"visa_type_id"`
		EffectiveFrom time.Time  `json:"effective_from"`
		EffectiveTo   *time.Time `json:"effective_to"`
		IsPublished   bool       `json:"is_published"`
	}
	if err := json.NewDecoder(versionRec.Body).Decode(&versionResp); err != nil {
		t.Fatalf("failed to decode version response: %v", err)
	}
	if versionResp.ID == uuid.Nil {
		t.Fatalf("expected version id in response")
	}
	if versionResp.VisaTypeID != visaTypeResp.ID {
		t.Fatalf("expected version visa_type_id to match created visa type")
	}
	if !versionResp.IsPublished {
		t.Fatalf("expected version to be published")
	}
	if versionResp.EffectiveTo != nil {
		t.Fatalf("expected open-ended version, got effective_to %v", versionResp.EffectiveTo)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/admin/visa-types?active=true", nil)
	listReq.Header.Set("X-Admin-Token", adminToken)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing visa types, got %d", listRec.Code)
	}

	var listResp struct {
		VisaTypes []struct {
			Code string `json:"code"`
		} `json:"visa_types"`
	}
	if err := json.NewDecoder(listRec.Body).Decode(&listResp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listResp.VisaTypes) != 1 || listResp.VisaTypes[0].Code != "skilled-worker" {
		t.Fatalf("expected one visa type with code skilled-worker, got %+v", listResp.VisaTypes)
	}
}

func TestPublishVersionValidationErrors(t *testing.T) {
	router := newAdminRouter(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{
			name: "invalid visa type id",
			payload: map[string]any{
				"visa_type_id":   "not-a-uuid",
				"effective_from": "2026-04-09T00:00:00Z",
				"requirements":   []map[string]any{{"code": "x", "condition": true}},
			},
		},
		{
			name: "bad timestamp",
			payload: map[string]any{
				"visa_type_id":   uuid.NewString(),
				"effective_from": "April 9th",
				"requirements":   []map[string]any{{"code": "x", "condition": true}},
			},
		},
		{
			name: "no requirements",
			payload: map[string]any{
				"visa_type_id":   uuid.NewString(),
				"effective_from": "2026-04-09T00:00:00Z",
				"requirements":   []map[string]any{},
			},
		},
		{
			name: "missing condition",
			payload: map[string]any{
				"visa_type_id":   uuid.NewString(),
				"effective_from": "2026-04-09T00:00:00Z",
				"requirements":   []map[string]any{{"code": "x"}},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.payload)
			req := httptest.NewRequest(http.MethodPost, "/admin/rule-versions", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Admin-Token", adminToken)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
