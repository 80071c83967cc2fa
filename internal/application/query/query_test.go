package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coach-hub/science-coach-hub/internal/domain/leaderboard"
	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/infrastructure/persistence/memory"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

var biologyLesson = lesson.Lesson{
	ID:         "l1",
	Subject:    "Biology",
	Title:      "Cell Structure",
	Slug:       "cell-structure",
	Objectives: []string{"Explain the nucleus."},
}

// recordingCache is a leaderboard.Cache with a fixed warm state.
type recordingCache struct {
	entries  []leaderboard.Entry
	warm     bool
	rebuilds int
	lastSize int
}

func (c *recordingCache) Top(_ context.Context, _ string, limit int) ([]leaderboard.Entry, bool, error) {
	if !c.warm {
		return nil, false, nil
	}
	entries := c.entries
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, true, nil
}

func (c *recordingCache) Rebuild(_ context.Context, _ string, entries []leaderboard.Entry) error {
	c.rebuilds++
	c.lastSize = len(entries)
	c.entries = entries
	c.warm = true
	return nil
}

func (c *recordingCache) Invalidate(context.Context) error {
	c.warm = false
	return nil
}

func seedLedgers(t *testing.T) *memory.LedgerRepository {
	t.Helper()
	ledgers := memory.NewLedgerRepository()

	grant := func(studentID, name string, coins int) {
		_, err := ledgers.Update(context.Background(), studentID, func(l *reward.Ledger) error {
			l.DisplayName = name
			_, aErr := l.Adjust("Biology", reward.OperationAdd, coins, testTime)
			return aErr
		})
		require.NoError(t, err)
	}

	grant("s1", "Aigerim", 30)
	grant("s2", "Bauyrzhan", 50)
	grant("s3", "Chingiz", 10)
	return ledgers
}

func TestGetLeaderboard(t *testing.T) {
	t.Run("cold cache scans ledgers and repopulates the full page", func(t *testing.T) {
		cache := &recordingCache{}
		handler := NewGetLeaderboardHandler(seedLedgers(t), memory.NewLessonStore(biologyLesson), cache, nil)

		result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 2})
		require.NoError(t, err)

		assert.False(t, result.FromCache)
		require.Len(t, result.Entries, 2)
		assert.Equal(t, "s2", result.Entries[0].StudentID)
		assert.Equal(t, 50, result.Entries[0].Coins)

		assert.Equal(t, 1, cache.rebuilds)
		// The rebuild stores the full board, not just the requested page.
		assert.Equal(t, 3, cache.lastSize)
	})

	t.Run("warm cache answers without touching the ledgers", func(t *testing.T) {
		cache := &recordingCache{
			warm: true,
			entries: []leaderboard.Entry{
				{Rank: 1, StudentID: "cached", DisplayName: "Cached", Coins: 99},
			},
		}
		handler := NewGetLeaderboardHandler(memory.NewLedgerRepository(), memory.NewLessonStore(), cache, nil)

		result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
		require.NoError(t, err)

		assert.True(t, result.FromCache)
		require.Len(t, result.Entries, 1)
		assert.Equal(t, "cached", result.Entries[0].StudentID)
		assert.Equal(t, 0, cache.rebuilds)
	})

	t.Run("works without a cache", func(t *testing.T) {
		handler := NewGetLeaderboardHandler(seedLedgers(t), memory.NewLessonStore(biologyLesson), nil, nil)

		result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
		require.NoError(t, err)

		require.Len(t, result.Entries, 3)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		handler := NewGetLeaderboardHandler(seedLedgers(t), memory.NewLessonStore(biologyLesson), nil, nil)

		result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: -5})
		require.NoError(t, err)

		// MinLimit rows at most
		assert.Len(t, result.Entries, leaderboard.MinLimit)
	})
}

func TestGetBalance(t *testing.T) {
	t.Run("unknown student gets an empty snapshot", func(t *testing.T) {
		handler := NewGetBalanceHandler(memory.NewLedgerRepository(), memory.NewLessonStore())

		result, err := handler.Handle(context.Background(), GetBalanceQuery{StudentID: "ghost"})
		require.NoError(t, err)

		assert.Equal(t, "ghost", result.StudentID)
		assert.Equal(t, 0, result.Balance)
		assert.NotNil(t, result.Rewards)
		assert.Empty(t, result.Rewards)
		assert.Nil(t, result.SubjectCoins)
	})

	t.Run("returns balance and newest-first history", func(t *testing.T) {
		ledgers := memory.NewLedgerRepository()
		_, err := ledgers.Update(context.Background(), "s1", func(l *reward.Ledger) error {
			l.DisplayName = "Aigerim"
			if _, aErr := l.AwardObjective("key-1", "cell-structure", "Biology", "Explain the nucleus.", 10, testTime); aErr != nil {
				return aErr
			}
			_, aErr := l.Adjust("Chemistry", reward.OperationAdd, 5, testTime.Add(time.Hour))
			return aErr
		})
		require.NoError(t, err)

		handler := NewGetBalanceHandler(ledgers, memory.NewLessonStore(biologyLesson))

		result, err := handler.Handle(context.Background(), GetBalanceQuery{StudentID: "s1"})
		require.NoError(t, err)

		assert.Equal(t, "Aigerim", result.DisplayName)
		assert.Equal(t, 15, result.Balance)
		require.Len(t, result.Rewards, 2)
		assert.True(t, result.Rewards[0].Manual)
		assert.Equal(t, "cell-structure", result.Rewards[1].LessonSlug)
	})

	t.Run("subject filter adds the attributed total", func(t *testing.T) {
		ledgers := memory.NewLedgerRepository()
		_, err := ledgers.Update(context.Background(), "s1", func(l *reward.Ledger) error {
			if _, aErr := l.AwardObjective("key-1", "cell-structure", "Biology", "Explain the nucleus.", 10, testTime); aErr != nil {
				return aErr
			}
			_, aErr := l.Adjust("Chemistry", reward.OperationAdd, 5, testTime)
			return aErr
		})
		require.NoError(t, err)

		handler := NewGetBalanceHandler(ledgers, memory.NewLessonStore(biologyLesson))

		result, err := handler.Handle(context.Background(), GetBalanceQuery{StudentID: "s1", Subject: "Biology"})
		require.NoError(t, err)

		require.NotNil(t, result.SubjectCoins)
		assert.Equal(t, 10, *result.SubjectCoins)
		assert.Equal(t, 15, result.Balance)
	})

	t.Run("requires a student ID", func(t *testing.T) {
		handler := NewGetBalanceHandler(memory.NewLedgerRepository(), memory.NewLessonStore())

		_, err := handler.Handle(context.Background(), GetBalanceQuery{})
		assert.Error(t, err)
	})
}

func TestGetProgress(t *testing.T) {
	repo := memory.NewProgressRepository()
	for i := 0; i < 5; i++ {
		entry := progress.NewEntry(progress.Entry{StudentID: "s1"}, testTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Append(context.Background(), entry))
	}

	handler := NewGetProgressHandler(repo)

	t.Run("newest entries first up to the limit", func(t *testing.T) {
		result, err := handler.Handle(context.Background(), GetProgressQuery{Limit: 3})
		require.NoError(t, err)

		require.Len(t, result.Entries, 3)
		assert.True(t, result.Entries[0].RecordedAt.After(result.Entries[2].RecordedAt))
	})

	t.Run("empty log yields an empty slice", func(t *testing.T) {
		empty := NewGetProgressHandler(memory.NewProgressRepository())

		result, err := empty.Handle(context.Background(), GetProgressQuery{})
		require.NoError(t, err)

		assert.NotNil(t, result.Entries)
		assert.Empty(t, result.Entries)
	})
}

func TestListLessons(t *testing.T) {
	chemistry := lesson.Lesson{
		ID: "l2", Subject: "Chemistry", Title: "Acids and Bases",
		Slug: "acids-and-bases", Objectives: []string{"Define pH."},
	}
	store := memory.NewLessonStore(biologyLesson, chemistry)
	handler := NewListLessonsHandler(store)

	t.Run("lists everything with the subject index", func(t *testing.T) {
		result, err := handler.Handle(context.Background(), ListLessonsQuery{})
		require.NoError(t, err)

		assert.Len(t, result.Lessons, 2)
		assert.Equal(t, []string{"Biology", "Chemistry"}, result.Subjects)
	})

	t.Run("filters by subject", func(t *testing.T) {
		result, err := handler.Handle(context.Background(), ListLessonsQuery{Subject: "Chemistry"})
		require.NoError(t, err)

		require.Len(t, result.Lessons, 1)
		assert.Equal(t, "l2", result.Lessons[0].ID)
	})
}
