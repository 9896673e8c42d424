package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"visado/internal/facts"
	"visado/internal/facts/store"
	id "visado/pkg/domain"
	"visado/pkg/testutil"
)

func newFactRouter(t *testing.T) (http.Handler, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	svc, err := facts.New(st)
	if err != nil {
		t.Fatalf("failed to build fact service: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r, st
}

func postFacts(t *testing.T, router http.Handler, caseID string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/cases/"+caseID+"/facts", payload)
	return testutil.DoRequest(router, req)
}

func TestAppendFactsOpensCase(t *testing.T) {
	router, st := newFactRouter(t)
	caseID := id.NewCaseID()

	rec := postFacts(t, router, caseID.String(), map[string]any{
		"facts": []map[string]any{
			{"key": "salary", "value": 42000, "source": "user"},
			{"key": "has_criminal_record", "value": false, "source": "user"},
		},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	latest, err := st.LatestByCase(context.Background(), caseID)
	if err != nil {
		t.Fatalf("expected case to be opened: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(latest))
	}
}

func TestAppendFactsInvalidCaseID(t *testing.T) {
	router, _ := newFactRouter(t)
	rec := postFacts(t, router, "not-a-uuid", map[string]any{
		"facts": []map[string]any{{"key": "salary", "value": 1, "source": "user"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAppendFactsValidation(t *testing.T) {
	router, _ := newFactRouter(t)
	caseID := id.NewCaseID().String()

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{name: "empty facts", payload: map[string]any{"facts": []map[string]any{}}},
		{name: "missing key", payload: map[string]any{
			"facts": []map[string]any{{"value": 1, "source": "user"}},
		}},
		{name: "bad source", payload: map[string]any{
			"facts": []map[string]any{{"key": "salary", "value": 1, "source": "oracle"}},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postFacts(t, router, caseID, tc.payload)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListFacts(t *testing.T) {
	router, _ := newFactRouter(t)
	caseID := id.NewCaseID()

	rec := postFacts(t, router, caseID.String(), map[string]any{
		"facts": []map[string]any{
			{"key": "salary", "value": 36000, "source": "ai"},
			{"key": "salary", "value": 42000, "source": "reviewer"},
		},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/cases/"+caseID.String()+"/facts", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}

	var resp struct {
		CaseID string `json:"case_id"`
		Facts  []struct {
			Key    string `json:"key"`
			Source string `json:"source"`
		} `json:"facts"`
	}
	if err := json.NewDecoder(getRec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.CaseID != caseID.String() {
		t.Fatalf("expected case_id %s, got %s", caseID, resp.CaseID)
	}
	if len(resp.Facts) != 2 {
		t.Fatalf("expected full history of 2 facts, got %d", len(resp.Facts))
	}
}

func TestListFactsUnknownCase(t *testing.T) {
	router, _ := newFactRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/cases/"+id.NewCaseID().String()+"/facts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
