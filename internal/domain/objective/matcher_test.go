package objective

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywords(t *testing.T) {
	t.Run("filters stop words and short tokens", func(t *testing.T) {
		keywords := Keywords("Explain the function of the nucleus, membrane, and mitochondria.")

		assert.Equal(t, []string{"function", "nucleus", "membrane", "mitochondria"}, keywords)
	})

	t.Run("deduplicates repeated keywords", func(t *testing.T) {
		keywords := Keywords("Photosynthesis and photosynthesis again")

		assert.Equal(t, []string{"photosynthesis", "again"}, keywords)
	})

	t.Run("degenerate objective yields nothing", func(t *testing.T) {
		assert.Empty(t, Keywords("Add 2 and 2"))
	})

	t.Run("punctuation does not glue tokens together", func(t *testing.T) {
		keywords := Keywords("nucleus/membrane,mitochondria")

		assert.Equal(t, []string{"nucleus", "membrane", "mitochondria"}, keywords)
	})
}

func TestHeuristicMet(t *testing.T) {
	objective := "Explain the function of the nucleus, membrane, and mitochondria."

	t.Run("two distinct keyword hits fire", func(t *testing.T) {
		assert.True(t, HeuristicMet(objective, "The nucleus and membrane control the cell"))
	})

	t.Run("one hit is not enough", func(t *testing.T) {
		assert.False(t, HeuristicMet(objective, "The nucleus is in the middle"))
	})

	t.Run("matching is case insensitive", func(t *testing.T) {
		assert.True(t, HeuristicMet(objective, "The NUCLEUS sits inside the MEMBRANE"))
	})

	t.Run("objective with fewer than two keywords never fires", func(t *testing.T) {
		// "Explain gravity" yields a single keyword, so even an exact
		// restatement cannot trigger the heuristic.
		assert.False(t, HeuristicMet("Explain gravity", "gravity gravity gravity"))
	})

	t.Run("empty message never fires", func(t *testing.T) {
		assert.False(t, HeuristicMet(objective, ""))
	})
}

func TestEvaluate(t *testing.T) {
	objective := "Explain the function of the nucleus, membrane, and mitochondria."

	t.Run("model verdict wins without override", func(t *testing.T) {
		outcome := Evaluate(objective, true, "unrelated message")

		assert.True(t, outcome.Met)
		assert.False(t, outcome.HeuristicOverride)
	})

	t.Run("heuristic overrides a negative model verdict", func(t *testing.T) {
		outcome := Evaluate(objective, false, "The nucleus and membrane control the cell")

		assert.True(t, outcome.Met)
		assert.True(t, outcome.HeuristicOverride)
	})

	t.Run("model assertion suppresses the override flag even when both fire", func(t *testing.T) {
		outcome := Evaluate(objective, true, "The nucleus and membrane control the cell")

		assert.True(t, outcome.Met)
		assert.False(t, outcome.HeuristicOverride)
	})

	t.Run("neither signal means not met", func(t *testing.T) {
		outcome := Evaluate(objective, false, "I have a question about homework")

		assert.False(t, outcome.Met)
		assert.False(t, outcome.HeuristicOverride)
	})
}

func TestKey(t *testing.T) {
	t.Run("stable for same inputs", func(t *testing.T) {
		a := Key("cell-structure", "Explain the nucleus")
		b := Key("cell-structure", "Explain the nucleus")

		assert.Equal(t, a, b)
	})

	t.Run("differs per lesson and objective", func(t *testing.T) {
		base := Key("cell-structure", "Explain the nucleus")

		assert.NotEqual(t, base, Key("photosynthesis", "Explain the nucleus"))
		assert.NotEqual(t, base, Key("cell-structure", "Explain the membrane"))
	})
}
