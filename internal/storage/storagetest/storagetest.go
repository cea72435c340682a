// Package storagetest is a conformance suite run against every
// storage.Store implementation.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

// Run exercises store. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("Segments", func(t *testing.T) { testSegments(t, newStore(t)) })
	t.Run("ReplaceSegments", func(t *testing.T) { testReplaceSegments(t, newStore(t)) })
	t.Run("Models", func(t *testing.T) { testModels(t, newStore(t)) })
}

func sampleSegment(name string) projection.Segment {
	return projection.Segment{
		Name:                name,
		PricePerTransaction: 2.5,
		CostPerTransaction:  1.5,
		MonthlyVolume:       1_000_000,
		VolumeGrowth:        8,
		Category:            "authentication",
		Notes:               "Population: 10.0M",
		Metadata:            map[string]string{"source": "demographics"},
	}
}

func testSegments(t *testing.T, store storage.Store) {
	ctx := context.Background()

	first := sampleSegment("Maharashtra - Auth")
	require.NoError(t, store.CreateSegment(ctx, &first))
	assert.NotEmpty(t, first.ID, "expected an ID to be assigned")

	second := sampleSegment("  Karnataka - Auth  ")
	second.ID = "seg-karnataka"
	second.Metadata = nil
	require.NoError(t, store.CreateSegment(ctx, &second))
	assert.Equal(t, "Karnataka - Auth", second.Name)

	duplicate := sampleSegment("maharashtra - AUTH")
	assert.ErrorIs(t, store.CreateSegment(ctx, &duplicate), storage.ErrDuplicateKey)

	unnamed := sampleSegment("   ")
	assert.ErrorIs(t, store.CreateSegment(ctx, &unnamed), storage.ErrInvalidInput)

	got, err := store.GetSegment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *got)

	_, err = store.GetSegment(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := store.ListSegments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "segments should list in creation order")
	assert.Equal(t, second.ID, list[1].ID)
	assert.Nil(t, list[1].Metadata)

	got.PricePerTransaction = 3
	got.Metadata["source"] = "edited"
	require.NoError(t, store.UpdateSegment(ctx, got))
	updated, err := store.GetSegment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, updated.PricePerTransaction)
	assert.Equal(t, "edited", updated.Metadata["source"])

	// Renaming onto another segment's name is rejected; keeping its own is not.
	updated.Name = "KARNATAKA - auth"
	assert.ErrorIs(t, store.UpdateSegment(ctx, updated), storage.ErrDuplicateKey)
	updated.Name = "MAHARASHTRA - Auth"
	require.NoError(t, store.UpdateSegment(ctx, updated))

	ghost := sampleSegment("Ghost")
	ghost.ID = "missing"
	assert.ErrorIs(t, store.UpdateSegment(ctx, &ghost), storage.ErrNotFound)
	noID := sampleSegment("No ID")
	assert.ErrorIs(t, store.UpdateSegment(ctx, &noID), storage.ErrInvalidInput)

	require.NoError(t, store.DeleteSegment(ctx, first.ID))
	assert.ErrorIs(t, store.DeleteSegment(ctx, first.ID), storage.ErrNotFound)

	list, err = store.ListSegments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func testReplaceSegments(t *testing.T, store storage.Store) {
	ctx := context.Background()

	old := sampleSegment("Old Segment")
	require.NoError(t, store.CreateSegment(ctx, &old))

	replacement := []projection.Segment{sampleSegment("Delhi - Auth"), sampleSegment("Punjab - Auth")}
	stored, err := store.ReplaceSegments(ctx, replacement)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Empty(t, replacement[0].ID, "input slice should not be modified")
	for _, segment := range stored {
		assert.NotEmpty(t, segment.ID)
	}

	list, err := store.ListSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, list)

	_, err = store.ReplaceSegments(ctx, []projection.Segment{sampleSegment("Goa"), sampleSegment("GOA")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	list, err = store.ListSegments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2, "failed replace must keep the previous set")

	stored, err = store.ReplaceSegments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
	list, err = store.ListSegments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testModels(t *testing.T, store storage.Store) {
	ctx := context.Background()

	segment := sampleSegment("OTP Banking")
	segment.ID = "seg-otp"
	segment.VolumeGrowth = 0

	model := &storage.Model{
		Name:        "India Auth",
		Description: "Pension and OTP",
		Parameters: projection.Parameters{
			Months:           12,
			Seasonality:      projection.SeasonalityFestival,
			OperatingExpense: projection.OperatingExpensePolicy{Type: projection.OpexHybrid, Fixed: 5_000_000, Percentage: 12},
			StartDate:        time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		Segments: []projection.Segment{segment},
	}
	require.NoError(t, store.SaveModel(ctx, model))
	require.NotEmpty(t, model.ID)
	assert.False(t, model.CreatedAt.IsZero())
	assert.InDelta(t, 12*2.5*1_000_000, model.TotalRevenue, 1e-3)

	got, err := store.GetModel(ctx, model.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Name, got.Name)
	assert.Equal(t, model.Description, got.Description)
	assert.Equal(t, model.Parameters.Months, got.Parameters.Months)
	assert.Equal(t, model.Parameters.Seasonality, got.Parameters.Seasonality)
	assert.Equal(t, model.Parameters.OperatingExpense, got.Parameters.OperatingExpense)
	assert.True(t, model.Parameters.StartDate.Equal(got.Parameters.StartDate))
	assert.Equal(t, model.Segments, got.Segments)
	assert.True(t, model.CreatedAt.Equal(got.CreatedAt))

	clash := &storage.Model{Name: "india auth"}
	assert.ErrorIs(t, store.SaveModel(ctx, clash), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.SaveModel(ctx, &storage.Model{Name: " "}), storage.ErrInvalidInput)

	createdAt := got.CreatedAt
	got.Description = "Revised"
	got.CreatedAt = time.Time{}
	require.NoError(t, store.SaveModel(ctx, got))
	assert.True(t, createdAt.Equal(got.CreatedAt), "update must keep the creation time")

	revised, err := store.GetModel(ctx, model.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revised", revised.Description)

	other := &storage.Model{Name: "Philippines KYC", Parameters: projection.Parameters{Months: 6}}
	require.NoError(t, store.SaveModel(ctx, other))

	models, err := store.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)

	require.NoError(t, store.DeleteModel(ctx, model.ID))
	assert.ErrorIs(t, store.DeleteModel(ctx, model.ID), storage.ErrNotFound)
	_, err = store.GetModel(ctx, model.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
