package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"visado/internal/evaluation"
	fmodels "visado/internal/facts/models"
	factstore "visado/internal/facts/store"
	"visado/internal/logic"
	"visado/internal/rules/models"
	"visado/internal/rules/resolver"
	rulestore "visado/internal/rules/store"
	id "visado/pkg/domain"
)

type testEnv struct {
	router     http.Handler
	caseID     id.CaseID
	visaTypeID id.VisaTypeID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	facts := factstore.NewInMemoryStore()
	rules := rulestore.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	res, err := resolver.New(rules, logger)
	if err != nil {
		t.Fatalf("failed to build resolver: %v", err)
	}
	svc, err := evaluation.New(facts, rules, res, rules)
	if err != nil {
		t.Fatalf("failed to build evaluation service: %v", err)
	}

	env := &testEnv{
		caseID:     id.NewCaseID(),
		visaTypeID: id.NewVisaTypeID(),
	}

	if err := rules.CreateVisaType(ctx, models.VisaType{
		ID: env.visaTypeID, Jurisdiction: "UK", Code: "skilled-worker",
		Name: "Skilled Worker", IsActive: true, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("failed to create visa type: %v", err)
	}

	versionID := id.NewRuleVersionID()
	if err := rules.InsertVersion(ctx, models.RuleVersion{
		ID: versionID, VisaTypeID: env.visaTypeID,
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IsPublished:   true, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("failed to insert version: %v", err)
	}
	condition, err := logic.FromAny(map[string]any{">=": []any{map[string]any{"var": "salary"}, 38700}})
	if err != nil {
		t.Fatalf("failed to build condition: %v", err)
	}
	if err := rules.InsertRequirements(ctx, []models.Requirement{{
		ID: id.NewRequirementID(), RuleVersionID: versionID,
		Code: "min-salary", RuleType: "threshold",
		Condition: condition, IsMandatory: true,
	}}); err != nil {
		t.Fatalf("failed to insert requirements: %v", err)
	}

	if err := facts.OpenCase(ctx, fmodels.Case{ID: env.caseID, OpenedAt: time.Now()}); err != nil {
		t.Fatalf("failed to open case: %v", err)
	}
	salary, err := logic.FromAny(42000)
	if err != nil {
		t.Fatalf("failed to build fact: %v", err)
	}
	if err := facts.Append(ctx, []fmodels.Fact{{
		CaseID: env.caseID, Key: "salary", Value: salary,
		Source: fmodels.SourceUser, CreatedAt: time.Now(),
	}}); err != nil {
		t.Fatalf("failed to append facts: %v", err)
	}

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	env.router = r
	return env
}

func (e *testEnv) evaluate(t *testing.T, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/evaluations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleEvaluate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.evaluate(t, map[string]any{
		"case_id":      env.caseID.String(),
		"visa_type_id": env.visaTypeID.String(),
		"at":           "2026-06-01T00:00:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Outcome            string  `json:"outcome"`
		Confidence         float64 `json:"confidence"`
		RequirementsTotal  int     `json:"requirements_total"`
		RequirementsPassed int     `json:"requirements_passed"`
		RuleVersionID      string  `json:"rule_version_id"`
		EvaluationDate     string  `json:"evaluation_date"`
		RequirementDetails []struct {
			RequirementCode string `json:"requirement_code"`
			Status          string `json:"status"`
		} `json:"requirement_details"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Outcome != "likely" {
		t.Fatalf("expected likely, got %s", resp.Outcome)
	}
	if resp.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", resp.Confidence)
	}
	if resp.RequirementsTotal != 1 || resp.RequirementsPassed != 1 {
		t.Fatalf("unexpected counts: %+v", resp)
	}
	if resp.RuleVersionID == "" {
		t.Fatalf("expected rule_version_id in response")
	}
	if len(resp.RequirementDetails) != 1 || resp.RequirementDetails[0].Status != "passed" {
		t.Fatalf("unexpected requirement details: %+v", resp.RequirementDetails)
	}
}

func TestHandleEvaluateUnknownCase(t *testing.T) {
	env := newTestEnv(t)
	rec := env.evaluate(t, map[string]any{
		"case_id":      id.NewCaseID().String(),
		"visa_type_id": env.visaTypeID.String(),
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleEvaluateNoActiveVersion(t *testing.T) {
	env := newTestEnv(t)
	// Before the only version's effective_from nothing is in force.
	rec := env.evaluate(t, map[string]any{
		"case_id":      env.caseID.String(),
		"visa_type_id": env.visaTypeID.String(),
		"at":           "2020-01-01T00:00:00Z",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 when no rule version is active, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleEvaluateValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{name: "bad case id", payload: map[string]any{
			"case_id": "nope", "visa_type_id": env.visaTypeID.String(),
		}},
		{name: "bad visa type id", payload: map[string]any{
			"case_id": env.caseID.String(), "visa_type_id": "nope",
		}},
		{name: "bad timestamp", payload: map[string]any{
			"case_id": env.caseID.String(), "visa_type_id": env.visaTypeID.String(), "at": "yesterday",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.evaluate(t, tc.payload)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
