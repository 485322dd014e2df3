package packs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
)

func savePack(t *testing.T, repo *Repository, id, label string, updated time.Time) {
	t.Helper()
	err := repo.Save(context.Background(), &entities.Pack{
		ID:        id,
		Label:     label,
		CreatedAt: entities.NewTimestamp(updated),
		UpdatedAt: entities.NewTimestamp(updated),
	})
	require.NoError(t, err)
}

func TestSave_DerivesLabelKeyAndCounts(t *testing.T) {
	repo := NewRepository(docstore.NewMemoryStore())
	ctx := context.Background()
	savePack(t, repo, "wp-1", "  Bottle Neck ", time.Now())

	p, err := repo.Get(ctx, "wp-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "bottle neck", p.LabelKey)
	assert.Equal(t, entities.NewCategoryCounts(), p.CategoryCounts)

	missing, err := repo.Get(ctx, "wp-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetCategoryCounts(t *testing.T) {
	repo := NewRepository(docstore.NewMemoryStore())
	ctx := context.Background()
	before := time.Now().Add(-time.Hour)
	savePack(t, repo, "wp-1", "x", before)

	counts := entities.CategoryCounts{entities.CategoryCS: 4}
	ok, err := repo.SetCategoryCounts(ctx, "wp-1", counts)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := repo.Get(ctx, "wp-1")
	require.NoError(t, err)
	assert.Equal(t, entities.Count(4), p.CategoryCounts[entities.CategoryCS])
	assert.Equal(t, entities.Count(0), p.CategoryCounts[entities.CategoryDev])
	assert.True(t, p.UpdatedAt.After(before))

	ok, err = repo.SetCategoryCounts(ctx, "missing", counts)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList_NewestFirstWithOffset(t *testing.T) {
	repo := NewRepository(docstore.NewMemoryStore())
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		savePack(t, repo, fmt.Sprintf("wp-%d", i), "x", base.Add(time.Duration(i)*time.Minute))
	}

	page, err := repo.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "wp-2", page[0].ID)
	assert.Equal(t, "wp-1", page[1].ID)
}

func TestCount_ScansWithoutAggregation(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.WithoutAggregation())
	repo := NewRepository(store)
	ctx := context.Background()
	for i := 0; i < scanPageSize+3; i++ {
		require.NoError(t, store.Set(ctx, Collection, fmt.Sprintf("p%04d", i), map[string]any{"label": "x"}))
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(scanPageSize+3), n)

	labels, err := repo.Labels(ctx)
	require.NoError(t, err)
	assert.Len(t, labels, scanPageSize+3)
}

func TestFindIDByLabel_ExactBeforeCaseInsensitive(t *testing.T) {
	repo := NewRepository(docstore.NewMemoryStore())
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	savePack(t, repo, "exact", "Latency", base)
	savePack(t, repo, "newer", "LATENCY", base.Add(time.Hour))

	id, err := repo.FindIDByLabel(ctx, "Latency")
	require.NoError(t, err)
	assert.Equal(t, "exact", id)

	id, err = repo.FindIDByLabel(ctx, "latency")
	require.NoError(t, err)
	assert.Equal(t, "newer", id)

	id, err = repo.FindIDByLabel(ctx, "throughput")
	require.NoError(t, err)
	assert.Empty(t, id)

	p, err := repo.FindByLabelCaseInsensitive(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestUpdateStudyProgress_KeepsUpdatedAt(t *testing.T) {
	repo := NewRepository(docstore.NewMemoryStore())
	ctx := context.Background()
	stamp := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	savePack(t, repo, "wp-1", "x", stamp)

	progress, err := repo.UpdateStudyProgress(ctx, "wp-1", 2, -1)
	require.NoError(t, err)
	assert.Equal(t, entities.StudyProgress{CheckedCount: 2}, *progress)

	p, err := repo.Get(ctx, "wp-1")
	require.NoError(t, err)
	assert.True(t, p.UpdatedAt.Equal(stamp))

	progress, err = repo.UpdateStudyProgress(ctx, "missing", 1, 1)
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestLabelsByID(t *testing.T) {
	repo := NewRepository(docstore.NewMemoryStore())
	savePack(t, repo, "wp-1", "alpha", time.Now())

	labels, err := repo.LabelsByID(context.Background(), []string{"wp-1", "wp-1", "gone"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"wp-1": "alpha"}, labels)
}
