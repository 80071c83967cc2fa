package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/infrastructure/persistence/memory"
)

func now() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func lessonWith(id, subject, title string, objectives ...string) lesson.Lesson {
	return lesson.Lesson{
		ID:         id,
		Subject:    subject,
		Title:      title,
		Objectives: objectives,
	}
}

func TestAdjustCoins(t *testing.T) {
	t.Run("add creates the ledger and invalidates the cache", func(t *testing.T) {
		ledgers := memory.NewLedgerRepository()
		cache := &cacheSpy{}
		handler := NewAdjustCoinsHandler(ledgers, cache, nil)

		result, err := handler.Handle(context.Background(), AdjustCoinsCommand{
			StudentID:   "s1",
			StudentName: "Aigerim",
			Subject:     "Biology",
			Operation:   reward.OperationAdd,
			Amount:      25,
		})
		require.NoError(t, err)

		assert.Equal(t, 25, result.Delta)
		assert.Equal(t, 25, result.NewBalance)
		assert.Equal(t, 1, cache.invalidations)

		ledger, err := ledgers.Get(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, "Aigerim", ledger.DisplayName)
	})

	t.Run("remove below zero floors and reports the applied delta", func(t *testing.T) {
		ledgers := memory.NewLedgerRepository()
		handler := NewAdjustCoinsHandler(ledgers, nil, nil)

		_, err := handler.Handle(context.Background(), AdjustCoinsCommand{
			StudentID: "s1", Subject: "Biology", Operation: reward.OperationAdd, Amount: 10,
		})
		require.NoError(t, err)

		result, err := handler.Handle(context.Background(), AdjustCoinsCommand{
			StudentID: "s1", Subject: "Biology", Operation: reward.OperationRemove, Amount: 30,
		})
		require.NoError(t, err)

		assert.Equal(t, -10, result.Delta)
		assert.Equal(t, 0, result.NewBalance)
	})

	t.Run("zero delta skips cache invalidation", func(t *testing.T) {
		cache := &cacheSpy{}
		handler := NewAdjustCoinsHandler(memory.NewLedgerRepository(), cache, nil)

		result, err := handler.Handle(context.Background(), AdjustCoinsCommand{
			StudentID: "s1", Subject: "Biology", Operation: reward.OperationRemove, Amount: 5,
		})
		require.NoError(t, err)

		assert.Equal(t, 0, result.Delta)
		assert.Equal(t, 0, cache.invalidations)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		handler := NewAdjustCoinsHandler(memory.NewLedgerRepository(), nil, nil)

		_, err := handler.Handle(context.Background(), AdjustCoinsCommand{
			Subject: "Biology", Operation: reward.OperationAdd, Amount: 5,
		})
		assert.Error(t, err)

		_, err = handler.Handle(context.Background(), AdjustCoinsCommand{
			StudentID: "s1", Subject: "Biology", Operation: "grant", Amount: 5,
		})
		assert.Error(t, err)
	})
}

func TestClearRewards(t *testing.T) {
	seed := func(t *testing.T) (*memory.LedgerRepository, *ClearRewardsHandler, *cacheSpy) {
		t.Helper()
		ledgers := memory.NewLedgerRepository()
		cache := &cacheSpy{}
		lessons := memory.NewLessonStore(cellStructure)
		handler := NewClearRewardsHandler(ledgers, lessons, cache, nil)

		_, err := ledgers.Update(context.Background(), "s1", func(l *reward.Ledger) error {
			_, aErr := l.AwardObjective("key-1", "cell-structure", "Biology", "Explain the nucleus", 10, now())
			if aErr != nil {
				return aErr
			}
			_, aErr = l.Adjust("Chemistry", reward.OperationAdd, 7, now())
			return aErr
		})
		require.NoError(t, err)
		return ledgers, handler, cache
	}

	t.Run("subject clear keeps the rest of the ledger", func(t *testing.T) {
		ledgers, handler, cache := seed(t)

		result, err := handler.Handle(context.Background(), ClearRewardsCommand{
			StudentID: "s1",
			Subject:   "Biology",
		})
		require.NoError(t, err)

		assert.Equal(t, 1, result.RemovedCount)
		assert.Equal(t, 10, result.RemovedCoins)
		assert.Equal(t, 7, result.NewBalance)
		assert.False(t, result.LedgerDeleted)
		assert.Equal(t, 1, cache.invalidations)

		ledger, err := ledgers.Get(context.Background(), "s1")
		require.NoError(t, err)
		assert.Len(t, ledger.Records, 1)
	})

	t.Run("full clear deletes the ledger", func(t *testing.T) {
		ledgers, handler, _ := seed(t)

		result, err := handler.Handle(context.Background(), ClearRewardsCommand{StudentID: "s1"})
		require.NoError(t, err)

		assert.Equal(t, 2, result.RemovedCount)
		assert.True(t, result.LedgerDeleted)

		_, err = ledgers.Get(context.Background(), "s1")
		assert.Error(t, err)
	})

	t.Run("clearing an unknown student is a no-op", func(t *testing.T) {
		_, handler, cache := seed(t)

		result, err := handler.Handle(context.Background(), ClearRewardsCommand{StudentID: "ghost"})
		require.NoError(t, err)

		assert.Equal(t, 0, result.RemovedCount)
		assert.Equal(t, 0, cache.invalidations)
	})
}

func TestManageLessons(t *testing.T) {
	t.Run("save derives slug and ID from the title", func(t *testing.T) {
		store := memory.NewLessonStore()
		handler := NewManageLessonsHandler(store, nil)

		saved, err := handler.Save(context.Background(), SaveLessonCommand{
			Lesson: lessonWith("", "Chemistry", "Acids and Bases", "Define pH."),
		})
		require.NoError(t, err)

		assert.Equal(t, "acids-and-bases", saved.Slug)
		assert.Equal(t, "acids-and-bases", saved.ID)

		all, err := store.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("save with explicit ID keeps it", func(t *testing.T) {
		handler := NewManageLessonsHandler(memory.NewLessonStore(), nil)

		saved, err := handler.Save(context.Background(), SaveLessonCommand{
			Lesson: lessonWith("custom-id", "Chemistry", "Acids and Bases", "Define pH."),
		})
		require.NoError(t, err)

		assert.Equal(t, "custom-id", saved.ID)
	})

	t.Run("save rejects incomplete lessons", func(t *testing.T) {
		handler := NewManageLessonsHandler(memory.NewLessonStore(), nil)

		_, err := handler.Save(context.Background(), SaveLessonCommand{
			Lesson: lessonWith("", "Chemistry", "No Objectives"),
		})
		assert.Error(t, err)
	})

	t.Run("delete removes the lesson", func(t *testing.T) {
		store := memory.NewLessonStore(cellStructure)
		handler := NewManageLessonsHandler(store, nil)

		require.NoError(t, handler.Delete(context.Background(), DeleteLessonCommand{LessonID: "l1"}))

		all, err := store.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)

		assert.Error(t, handler.Delete(context.Background(), DeleteLessonCommand{LessonID: "l1"}))
	})

	t.Run("import parses the legacy markdown", func(t *testing.T) {
		store := memory.NewLessonStore()
		handler := NewManageLessonsHandler(store, nil)

		result, err := handler.Import(context.Background(), ImportLessonsCommand{
			Markdown: "## Lesson: Gravity\n- Objective: Define gravitational force.",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
	})

	t.Run("import with no parseable lessons fails", func(t *testing.T) {
		handler := NewManageLessonsHandler(memory.NewLessonStore(), nil)

		_, err := handler.Import(context.Background(), ImportLessonsCommand{Markdown: "just prose"})
		assert.Error(t, err)
	})
}

func TestPurgeProgress(t *testing.T) {
	seed := func(t *testing.T) (*memory.ProgressRepository, []string) {
		t.Helper()
		repo := memory.NewProgressRepository()
		var ids []string
		for i := 0; i < 3; i++ {
			entry := progress.NewEntry(progress.Entry{StudentID: "s1", StudentMessage: "msg"}, now())
			require.NoError(t, repo.Append(context.Background(), entry))
			ids = append(ids, entry.ID)
		}
		return repo, ids
	}

	t.Run("purge selected entries", func(t *testing.T) {
		repo, ids := seed(t)
		handler := NewPurgeProgressHandler(repo, nil)

		result, err := handler.Handle(context.Background(), PurgeProgressCommand{EntryIDs: ids[:2]})
		require.NoError(t, err)

		assert.Equal(t, 2, result.Removed)

		remaining, err := repo.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})

	t.Run("purge all", func(t *testing.T) {
		repo, _ := seed(t)
		handler := NewPurgeProgressHandler(repo, nil)

		result, err := handler.Handle(context.Background(), PurgeProgressCommand{All: true})
		require.NoError(t, err)

		assert.Equal(t, 3, result.Removed)
	})

	t.Run("empty command is invalid", func(t *testing.T) {
		repo, _ := seed(t)
		handler := NewPurgeProgressHandler(repo, nil)

		_, err := handler.Handle(context.Background(), PurgeProgressCommand{})
		assert.Error(t, err)
	})
}
