package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestLedgerRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("get unknown student is not found", func(t *testing.T) {
		repo := NewLedgerRepository()

		_, err := repo.Get(ctx, "ghost")
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("update creates and persists a ledger", func(t *testing.T) {
		repo := NewLedgerRepository()

		_, err := repo.Update(ctx, "s1", func(l *reward.Ledger) error {
			_, aErr := l.Adjust("Biology", reward.OperationAdd, 10, testTime)
			return aErr
		})
		require.NoError(t, err)

		ledger, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 10, ledger.Balance)
	})

	t.Run("get returns a copy, not shared state", func(t *testing.T) {
		repo := NewLedgerRepository()
		_, err := repo.Update(ctx, "s1", func(l *reward.Ledger) error {
			_, aErr := l.Adjust("Biology", reward.OperationAdd, 10, testTime)
			return aErr
		})
		require.NoError(t, err)

		ledger, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		ledger.Balance = 999

		fresh, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 10, fresh.Balance)
	})

	t.Run("failed update leaves nothing behind", func(t *testing.T) {
		repo := NewLedgerRepository()

		_, err := repo.Update(ctx, "s1", func(l *reward.Ledger) error {
			_, aErr := l.Adjust("", reward.OperationAdd, 10, testTime)
			return aErr
		})
		require.Error(t, err)

		_, err = repo.Get(ctx, "s1")
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("untouched new ledger is not stored", func(t *testing.T) {
		repo := NewLedgerRepository()

		_, err := repo.Update(ctx, "s1", func(l *reward.Ledger) error {
			l.Clear("", nil)
			return nil
		})
		require.NoError(t, err)

		all, err := repo.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("purge-marked ledger is deleted", func(t *testing.T) {
		repo := NewLedgerRepository()
		_, err := repo.Update(ctx, "s1", func(l *reward.Ledger) error {
			_, aErr := l.Adjust("Biology", reward.OperationAdd, 10, testTime)
			return aErr
		})
		require.NoError(t, err)

		_, err = repo.Update(ctx, "s1", func(l *reward.Ledger) error {
			l.Clear("", nil)
			return nil
		})
		require.NoError(t, err)

		_, err = repo.Get(ctx, "s1")
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("all orders by student ID", func(t *testing.T) {
		repo := NewLedgerRepository()
		for _, id := range []string{"s3", "s1", "s2"} {
			_, err := repo.Update(ctx, id, func(l *reward.Ledger) error {
				_, aErr := l.Adjust("Biology", reward.OperationAdd, 5, testTime)
				return aErr
			})
			require.NoError(t, err)
		}

		all, err := repo.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "s1", all[0].StudentID)
		assert.Equal(t, "s3", all[2].StudentID)
	})
}

func TestProgressRepository(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, n int) (*ProgressRepository, []string) {
		t.Helper()
		repo := NewProgressRepository()
		var ids []string
		for i := 0; i < n; i++ {
			entry := progress.NewEntry(progress.Entry{StudentID: "s1"}, testTime.Add(time.Duration(i)*time.Minute))
			require.NoError(t, repo.Append(ctx, entry))
			ids = append(ids, entry.ID)
		}
		return repo, ids
	}

	t.Run("list recent returns newest first", func(t *testing.T) {
		repo, _ := seed(t, 3)

		entries, err := repo.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.True(t, entries[0].RecordedAt.After(entries[2].RecordedAt))
	})

	t.Run("limit truncates", func(t *testing.T) {
		repo, _ := seed(t, 5)

		entries, err := repo.ListRecent(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("delete by IDs reports the removed count", func(t *testing.T) {
		repo, ids := seed(t, 3)

		removed, err := repo.DeleteByIDs(ctx, []string{ids[0], "no-such-id"})
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		entries, err := repo.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("delete all empties the log", func(t *testing.T) {
		repo, _ := seed(t, 4)

		removed, err := repo.DeleteAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, removed)

		entries, err := repo.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestLessonStore(t *testing.T) {
	ctx := context.Background()

	biology := lesson.Lesson{ID: "l1", Subject: "Biology", Title: "Cells", Slug: "cells", Objectives: []string{"x"}}
	chemistry := lesson.Lesson{ID: "l2", Subject: "Chemistry", Title: "Acids", Slug: "acids", Objectives: []string{"y"}}

	t.Run("list keeps insertion order", func(t *testing.T) {
		store := NewLessonStore(chemistry, biology)

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "l2", all[0].ID)
		assert.Equal(t, "l1", all[1].ID)
	})

	t.Run("save replaces by ID without reordering", func(t *testing.T) {
		store := NewLessonStore(biology, chemistry)

		updated := biology
		updated.Title = "Cells, revised"
		require.NoError(t, store.Save(ctx, updated))

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Cells, revised", all[0].Title)
	})

	t.Run("delete removes and later deletes fail", func(t *testing.T) {
		store := NewLessonStore(biology)

		require.NoError(t, store.Delete(ctx, "l1"))
		err := store.Delete(ctx, "l1")
		assert.True(t, shared.IsNotFound(err))
	})
}
