package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visado/internal/logic"
	"visado/internal/rules/models"
	id "visado/pkg/domain"
	"visado/pkg/platform/sentinel"
)

func TestInMemoryStore_VisaTypes(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	vt := models.VisaType{
		ID:           id.NewVisaTypeID(),
		Jurisdiction: "DE",
		Code:         "skilled_worker",
		Name:         "Skilled Worker Visa",
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, store.CreateVisaType(ctx, vt))

	t.Run("duplicate jurisdiction and code conflicts", func(t *testing.T) {
		dup := vt
		dup.ID = id.NewVisaTypeID()
		dup.Code = "Skilled_Worker" // case-insensitive uniqueness
		err := store.CreateVisaType(ctx, dup)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("same code in another jurisdiction is fine", func(t *testing.T) {
		other := vt
		other.ID = id.NewVisaTypeID()
		other.Jurisdiction = "AT"
		assert.NoError(t, store.CreateVisaType(ctx, other))
	})

	t.Run("get missing visa type", func(t *testing.T) {
		_, err := store.GetVisaType(ctx, id.NewVisaTypeID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list can filter inactive", func(t *testing.T) {
		inactive := models.VisaType{
			ID:           id.NewVisaTypeID(),
			Jurisdiction: "DE",
			Code:         "retired_route",
			IsActive:     false,
			CreatedAt:    time.Now(),
		}
		require.NoError(t, store.CreateVisaType(ctx, inactive))

		all, err := store.ListVisaTypes(ctx, false)
		require.NoError(t, err)
		active, err := store.ListVisaTypes(ctx, true)
		require.NoError(t, err)
		assert.Len(t, all, len(active)+1)
	})
}

func TestInMemoryStore_Versions(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	visaTypeID := id.NewVisaTypeID()

	v1 := models.RuleVersion{
		ID:            id.NewRuleVersionID(),
		VisaTypeID:    visaTypeID,
		EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IsPublished:   true,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, store.InsertVersion(ctx, v1))

	t.Run("open version is found", func(t *testing.T) {
		open, err := store.FindOpenVersion(ctx, visaTypeID)
		require.NoError(t, err)
		require.NotNil(t, open)
		assert.Equal(t, v1.ID, open.ID)
	})

	t.Run("closing removes it from open lookup", func(t *testing.T) {
		closeAt := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
		require.NoError(t, store.CloseVersion(ctx, v1.ID, closeAt))

		open, err := store.FindOpenVersion(ctx, visaTypeID)
		require.NoError(t, err)
		assert.Nil(t, open)

		versions, err := store.GetPublishedVersions(ctx, visaTypeID)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		require.NotNil(t, versions[0].EffectiveTo)
		assert.True(t, versions[0].EffectiveTo.Equal(closeAt))
	})

	t.Run("closing an already closed version is invalid", func(t *testing.T) {
		err := store.CloseVersion(ctx, v1.ID, time.Now())
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("unpublished versions are invisible", func(t *testing.T) {
		draft := models.RuleVersion{
			ID:            id.NewRuleVersionID(),
			VisaTypeID:    visaTypeID,
			EffectiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			IsPublished:   false,
			CreatedAt:     time.Now(),
		}
		require.NoError(t, store.InsertVersion(ctx, draft))

		versions, err := store.GetPublishedVersions(ctx, visaTypeID)
		require.NoError(t, err)
		assert.Len(t, versions, 1)
	})
}

func TestInMemoryStore_Requirements(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	versionID := id.NewRuleVersionID()

	reqs := []models.Requirement{
		{
			ID:            id.NewRequirementID(),
			RuleVersionID: versionID,
			Code:          "min_salary",
			RuleType:      "financial",
			Condition:     logic.Number(1),
			IsMandatory:   true,
		},
		{
			ID:            id.NewRequirementID(),
			RuleVersionID: versionID,
			Code:          "language_level",
			RuleType:      "qualification",
			Condition:     logic.Bool(true),
		},
	}
	require.NoError(t, store.InsertRequirements(ctx, reqs))

	got, err := store.GetRequirements(ctx, versionID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "min_salary", got[0].Code, "insertion order preserved")
	assert.Equal(t, "language_level", got[1].Code)

	t.Run("unknown version yields empty slice", func(t *testing.T) {
		got, err := store.GetRequirements(ctx, id.NewRuleVersionID())
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
