package authoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visado/internal/logic"
	"visado/internal/rules/store"
	id "visado/pkg/domain"
	dErrors "visado/pkg/domain-errors"
	audit "visado/pkg/platform/audit"
	auditmem "visado/pkg/platform/audit/store/memory"
	auditpub "visado/pkg/platform/audit/publisher"
)

func newService(t *testing.T) (*Service, *store.InMemoryStore, *auditmem.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	sink := auditmem.NewInMemoryStore()
	svc, err := New(st, WithAuditPublisher(auditpub.NewPublisher(sink)))
	require.NoError(t, err)
	return svc, st, sink
}

func condition(t *testing.T, raw any) logic.Value {
	t.Helper()
	v, err := logic.FromAny(raw)
	require.NoError(t, err)
	return v
}

func TestCreateVisaType(t *testing.T) {
	svc, _, sink := newService(t)
	ctx := context.Background()

	vt, err := svc.CreateVisaType(ctx, "UK", "skilled-worker", "Skilled Worker")
	require.NoError(t, err)
	assert.True(t, vt.IsActive)
	assert.Equal(t, "UK", vt.Jurisdiction)

	_, err = svc.CreateVisaType(ctx, "uk", "Skilled-Worker", "Skilled Worker")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = svc.CreateVisaType(ctx, "", "skilled-worker", "Skilled Worker")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	events, err := sink.ListByCase(ctx, id.CaseID{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventVisaTypeCreated), events[0].Action)
	assert.Equal(t, vt.ID.String(), events[0].VisaTypeID)
}

func TestPublishVersionFirst(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	vt, err := svc.CreateVisaType(ctx, "UK", "skilled-worker", "Skilled Worker")
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	version, err := svc.PublishVersion(ctx, PublishRequest{
		VisaTypeID:    vt.ID,
		EffectiveFrom: from,
		Requirements: []RequirementInput{
			{
				Code:        "min-salary",
				RuleType:    "threshold",
				Condition:   condition(t, map[string]any{">=": []any{map[string]any{"var": "salary"}, 38700}}),
				IsMandatory: true,
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, version.IsPublished)
	assert.Nil(t, version.EffectiveTo)
	assert.True(t, version.EffectiveFrom.Equal(from))

	reqs, err := st.GetRequirements(ctx, version.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "min-salary", reqs[0].Code)
}

func TestPublishVersionClosesPrior(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	vt, err := svc.CreateVisaType(ctx, "UK", "skilled-worker", "Skilled Worker")
	require.NoError(t, err)

	cond := condition(t, map[string]any{">=": []any{map[string]any{"var": "salary"}, 26200}})

	firstFrom := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	first, err := svc.PublishVersion(ctx, PublishRequest{
		VisaTypeID:    vt.ID,
		EffectiveFrom: firstFrom,
		Requirements:  []RequirementInput{{Code: "min-salary", RuleType: "threshold", Condition: cond, IsMandatory: true}},
	})
	require.NoError(t, err)

	secondFrom := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	second, err := svc.PublishVersion(ctx, PublishRequest{
		VisaTypeID:    vt.ID,
		EffectiveFrom: secondFrom,
		Requirements:  []RequirementInput{{Code: "min-salary", RuleType: "threshold", Condition: cond, IsMandatory: true}},
	})
	require.NoError(t, err)

	versions, err := st.GetPublishedVersions(ctx, vt.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)

	var closed, open int
	for _, v := range versions {
		switch v.ID {
		case first.ID:
			require.NotNil(t, v.EffectiveTo)
			assert.True(t, v.EffectiveTo.Equal(secondFrom.Add(-time.Second)))
			closed++
		case second.ID:
			assert.Nil(t, v.EffectiveTo)
			open++
		}
	}
	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, open)
}

func TestPublishVersionRejectsEarlierEffectiveFrom(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	vt, err := svc.CreateVisaType(ctx, "UK", "skilled-worker", "Skilled Worker")
	require.NoError(t, err)

	cond := condition(t, true)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.PublishVersion(ctx, PublishRequest{
		VisaTypeID:    vt.ID,
		EffectiveFrom: from,
		Requirements:  []RequirementInput{{Code: "always", Condition: cond}},
	})
	require.NoError(t, err)

	_, err = svc.PublishVersion(ctx, PublishRequest{
		VisaTypeID:    vt.ID,
		EffectiveFrom: from.Add(-24 * time.Hour),
		Requirements:  []RequirementInput{{Code: "always", Condition: cond}},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestPublishVersionValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	vt, err := svc.CreateVisaType(ctx, "UK", "skilled-worker", "Skilled Worker")
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cond := condition(t, true)

	tests := []struct {
		name string
		req  PublishRequest
		code dErrors.Code
	}{
		{
			name: "unknown visa type",
			req: PublishRequest{
				VisaTypeID:    id.NewVisaTypeID(),
				EffectiveFrom: from,
				Requirements:  []RequirementInput{{Code: "always", Condition: cond}},
			},
			code: dErrors.CodeNotFound,
		},
		{
			name: "no requirements",
			req:  PublishRequest{VisaTypeID: vt.ID, EffectiveFrom: from},
			code: dErrors.CodeValidation,
		},
		{
			name: "missing effective_from",
			req: PublishRequest{
				VisaTypeID:   vt.ID,
				Requirements: []RequirementInput{{Code: "always", Condition: cond}},
			},
			code: dErrors.CodeValidation,
		},
		{
			name: "duplicate requirement code",
			req: PublishRequest{
				VisaTypeID:    vt.ID,
				EffectiveFrom: from,
				Requirements: []RequirementInput{
					{Code: "always", Condition: cond},
					{Code: "always", Condition: cond},
				},
			},
			code: dErrors.CodeValidation,
		},
		{
			name: "invalid condition",
			req: PublishRequest{
				VisaTypeID:    vt.ID,
				EffectiveFrom: from,
				Requirements: []RequirementInput{
					{Code: "broken", Condition: condition(t, map[string]any{})},
				},
			},
			code: dErrors.CodeValidation,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PublishVersion(ctx, tc.req)
			assert.True(t, dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestPublishVersionEmitsAudit(t *testing.T) {
	svc, _, sink := newService(t)
	ctx := context.Background()

	vt, err := svc.CreateVisaType(ctx, "UK", "skilled-worker", "Skilled Worker")
	require.NoError(t, err)

	version, err := svc.PublishVersion(ctx, PublishRequest{
		VisaTypeID:    vt.ID,
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Requirements:  []RequirementInput{{Code: "always", Condition: condition(t, true)}},
	})
	require.NoError(t, err)

	events, err := sink.ListByCase(ctx, id.CaseID{})
	require.NoError(t, err)
	var found bool
	for _, event := range events {
		if event.Action == string(audit.EventRuleVersionPublished) {
			found = true
			assert.Equal(t, version.ID.String(), event.RuleVersionID)
			assert.Equal(t, vt.ID.String(), event.VisaTypeID)
		}
	}
	assert.True(t, found)
}
