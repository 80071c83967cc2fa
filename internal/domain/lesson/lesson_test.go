package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Cell Structure", "cell-structure"},
		{"Acids & Bases!", "acids-bases"},
		{"  Photosynthesis  ", "photosynthesis"},
		{"Newton's 3rd Law", "newton-s-3rd-law"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.title), "title %q", tt.title)
	}
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "cell-structure", SanitizeKey("Cell-Structure"))
	assert.Equal(t, "ph_scale", SanitizeKey("pH_Scale!"))
	assert.Equal(t, "", SanitizeKey("!!!"))
}

func TestParseMarkdown(t *testing.T) {
	t.Run("parses lessons with objectives", func(t *testing.T) {
		md := `
## Lesson: Cell Structure
- Objective: Explain the function of the nucleus, membrane, and mitochondria.

## Lesson: Photosynthesis
- Objective: Describe how chlorophyll captures light.
- Objective: Explain the role of carbon dioxide.
`
		lessons := ParseMarkdown(md)

		require.Len(t, lessons, 2)
		assert.Equal(t, "Cell Structure", lessons[0].Title)
		assert.Equal(t, "cell-structure", lessons[0].Slug)
		assert.Equal(t, "cell-structure", lessons[0].ID)
		assert.Equal(t, "General Science", lessons[0].Subject)
		require.Len(t, lessons[0].Objectives, 1)

		assert.Equal(t, "Photosynthesis", lessons[1].Title)
		assert.Len(t, lessons[1].Objectives, 2)
	})

	t.Run("heading match is case insensitive", func(t *testing.T) {
		lessons := ParseMarkdown("## lesson: Gravity\n- objective: Define gravitational force.")

		require.Len(t, lessons, 1)
		assert.Equal(t, "Gravity", lessons[0].Title)
	})

	t.Run("objective lines before any lesson are dropped", func(t *testing.T) {
		lessons := ParseMarkdown("- Objective: orphaned\n## Lesson: Gravity\n- Objective: Define gravitational force.")

		require.Len(t, lessons, 1)
		assert.Equal(t, []string{"Define gravitational force."}, lessons[0].Objectives)
	})

	t.Run("lesson without objectives is kept for validation to reject", func(t *testing.T) {
		lessons := ParseMarkdown("## Lesson: Empty One")

		require.Len(t, lessons, 1)
		assert.Empty(t, lessons[0].Objectives)
	})

	t.Run("empty document yields nothing", func(t *testing.T) {
		assert.Empty(t, ParseMarkdown(""))
	})
}

func TestCatalog(t *testing.T) {
	lessons := []Lesson{
		{ID: "l1", Subject: "Biology", Title: "Cell Structure", Objectives: []string{"Explain the nucleus."}},
		{ID: "l2", Subject: "Chemistry", Title: "Acids and Bases", Objectives: []string{"Define pH."}},
		{ID: "broken", Subject: "", Title: "No Subject", Objectives: []string{"x"}},
	}

	catalog := NewCatalog(lessons)

	t.Run("skips invalid lessons and derives slugs", func(t *testing.T) {
		assert.Equal(t, 2, catalog.Len())

		l, ok := catalog.FindBySlug("cell-structure")
		require.True(t, ok)
		assert.Equal(t, "l1", l.ID)
	})

	t.Run("resolve prefers ID over slug", func(t *testing.T) {
		l, ok := catalog.Resolve("l2", "cell-structure")
		require.True(t, ok)
		assert.Equal(t, "l2", l.ID)
	})

	t.Run("resolve falls back to slug", func(t *testing.T) {
		l, ok := catalog.Resolve("missing", "acids-and-bases")
		require.True(t, ok)
		assert.Equal(t, "l2", l.ID)
	})

	t.Run("resolve with nothing finds nothing", func(t *testing.T) {
		_, ok := catalog.Resolve("", "")
		assert.False(t, ok)
	})

	t.Run("subjects are distinct and sorted", func(t *testing.T) {
		assert.Equal(t, []string{"Biology", "Chemistry"}, catalog.Subjects())
	})

	t.Run("subject map covers every slug", func(t *testing.T) {
		m := catalog.SubjectMap()
		assert.Equal(t, "Biology", m["cell-structure"])
		assert.Equal(t, "Chemistry", m["acids-and-bases"])
	})

	t.Run("prompt block lists every lesson with its objective", func(t *testing.T) {
		prompt := catalog.FormatForPrompt()

		assert.Contains(t, prompt, "Lesson: Cell Structure")
		assert.Contains(t, prompt, "Objective: Explain the nucleus.")
		assert.Contains(t, prompt, "Lesson: Acids and Bases")
	})

	t.Run("empty catalog renders a placeholder", func(t *testing.T) {
		assert.Equal(t, "No lessons configured.", NewCatalog(nil).FormatForPrompt())
	})
}
