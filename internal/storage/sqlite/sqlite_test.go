package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/internal/storage/storagetest"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		store, err := New(filepath.Join(t.TempDir(), "data", "forecast.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestStoreInMemory(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	segment := projection.Segment{Name: "eKYC Telecom", PricePerTransaction: 18, CostPerTransaction: 10, MonthlyVolume: 10_000_000}
	require.NoError(t, store.CreateSegment(context.Background(), &segment))

	list, err := store.ListSegments(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	model := &storage.Model{Name: "Persisted", Parameters: projection.Parameters{Months: 3}}
	require.NoError(t, store.SaveModel(ctx, model))
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetModel(ctx, model.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Name)
	assert.Equal(t, 3, got.Parameters.Months)
}
