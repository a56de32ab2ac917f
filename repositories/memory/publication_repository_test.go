package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/repositories"
)

func newPublication(title string, vec []float32) *models.Publication {
	return models.NewPublication(models.PublicationFields{
		Title:              title,
		Description:        "d",
		Summary:            "s",
		CompanyDescription: "c",
		Brand:              "b",
		Function:           "f",
		EmploymentLevel:    "e",
		EducationLevel:     "ed",
		CompanyName:        "n",
		City:               "Berlin",
	}, vec, time.Now())
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-6)
		})
	}
}

func TestPublicationRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewPublicationRepository(2)

	p := newPublication("Backend Engineer", []float32{1, 0})
	require.NoError(t, repo.Insert(ctx, p))

	// mutating the caller's value must not leak into the store
	p.Title = "changed"
	p.Embedding[0] = 42

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", got.Title)
	assert.Nil(t, got.Embedding)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	err = repo.Insert(ctx, p)
	assert.ErrorIs(t, err, errDuplicateID)

	err = repo.Insert(ctx, newPublication("bad", []float32{1, 0, 0}))
	assert.ErrorIs(t, err, repositories.ErrDimensionMismatch)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPublicationRepository_QueryNearest(t *testing.T) {
	ctx := context.Background()
	repo := NewPublicationRepository(2)

	far := newPublication("far", []float32{0, 1})
	near := newPublication("near", []float32{1, 0.1})
	mid := newPublication("mid", []float32{1, 1})
	for _, p := range []*models.Publication{far, near, mid} {
		require.NoError(t, repo.Insert(ctx, p))
	}

	t.Run("ascending distance", func(t *testing.T) {
		results, err := repo.QueryNearest(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, near.ID, results[0].ID)
		assert.Equal(t, mid.ID, results[1].ID)
		assert.Equal(t, far.ID, results[2].ID)
		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		}
		for _, r := range results {
			assert.Nil(t, r.Embedding)
			assert.GreaterOrEqual(t, r.Distance, 0.0)
		}
	})

	t.Run("bounded by min(k, stored)", func(t *testing.T) {
		for k := 1; k <= 5; k++ {
			results, err := repo.QueryNearest(ctx, []float32{1, 0}, k)
			require.NoError(t, err)
			assert.Len(t, results, min(k, 3), "k=%d", k)
		}
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := repo.QueryNearest(ctx, []float32{1, 0}, 0)
		assert.ErrorIs(t, err, repositories.ErrInvalidLimit)
		_, err = repo.QueryNearest(ctx, []float32{1, 0}, -3)
		assert.ErrorIs(t, err, repositories.ErrInvalidLimit)
	})

	t.Run("empty store", func(t *testing.T) {
		results, err := NewPublicationRepository(2).QueryNearest(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestPublicationRepository_TiesAreStable(t *testing.T) {
	ctx := context.Background()
	repo := NewPublicationRepository(2)

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.Insert(ctx, newPublication(fmt.Sprintf("tie-%d", i), []float32{1, 0})))
	}

	first, err := repo.QueryNearest(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].ID.String(), first[i].ID.String())
	}

	for run := 0; run < 5; run++ {
		again, err := repo.QueryNearest(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPublicationRepository_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	repo := NewPublicationRepository(2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = repo.Insert(ctx, newPublication(fmt.Sprintf("p-%d", i), []float32{float32(i), 1}))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = repo.QueryNearest(ctx, []float32{1, 1}, 5)
		}()
	}
	wg.Wait()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestTransactionManager(t *testing.T) {
	ctx := context.Background()

	t.Run("commit applies all staged rows", func(t *testing.T) {
		repo := NewPublicationRepository(1)
		tm := NewTransactionManager(repo)

		err := tm.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
			require.NoError(t, repo.Insert(txCtx, newPublication("a", []float32{1})))
			require.NoError(t, repo.Insert(txCtx, newPublication("b", []float32{1})))

			count, _ := repo.Count(ctx)
			assert.Equal(t, 0, count, "staged rows must not be visible before commit")
			return nil
		})
		require.NoError(t, err)

		count, _ := repo.Count(ctx)
		assert.Equal(t, 2, count)
	})

	t.Run("error discards staged rows", func(t *testing.T) {
		repo := NewPublicationRepository(1)
		tm := NewTransactionManager(repo)
		boom := errors.New("boom")

		err := tm.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
			_ = repo.Insert(txCtx, newPublication("a", []float32{1}))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		count, _ := repo.Count(ctx)
		assert.Equal(t, 0, count)
	})

	t.Run("duplicate id aborts the whole commit", func(t *testing.T) {
		repo := NewPublicationRepository(1)
		tm := NewTransactionManager(repo)
		existing := newPublication("existing", []float32{1})
		require.NoError(t, repo.Insert(ctx, existing))

		err := tm.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
			_ = repo.Insert(txCtx, newPublication("fresh", []float32{1}))
			return repo.Insert(txCtx, existing)
		})
		assert.ErrorIs(t, err, errDuplicateID)

		count, _ := repo.Count(ctx)
		assert.Equal(t, 1, count)
	})

	t.Run("finished transaction rejects commit", func(t *testing.T) {
		tm := NewTransactionManager(NewPublicationRepository(1))
		tx, err := tm.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		assert.ErrorIs(t, tx.Commit(), errTxDone)
		assert.NoError(t, tx.Rollback())
	})
}
