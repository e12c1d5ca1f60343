package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

func newDefaultClassifier(t *testing.T) *Classifier {
	t.Helper()

	c, err := NewClassifier(DefaultPolicy())
	require.NoError(t, err)

	return c
}

func TestClassify(t *testing.T) {
	c := newDefaultClassifier(t)

	tests := []struct {
		path     m.Path
		category m.Category
	}{
		{"src/Button.tsx", m.CategoryComponents},
		{"src/useCart.ts", m.CategoryHooks},
		{"src/theme.css", m.CategoryStyles},
		{"src/helpers.js", m.CategoryUtils},
		{"src/api/client.js", m.CategoryAPI},
		{"src/models.d.ts", m.CategoryTypes},
		{"logo.svg", m.CategoryAssets},
		{"vite.config.js", m.CategoryConfig},
		{"README.md", m.CategoryUncategorized},
	}

	for _, tt := range tests {
		t.Run(string(tt.path), func(t *testing.T) {
			verdict := c.Classify(tt.path)
			assert.Equal(t, tt.category, verdict.Category)
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	c := newDefaultClassifier(t)

	// Matches both the pages rule and the components rule; pages is earlier
	// in the table.
	verdict := c.Classify("app/dashboard/page.tsx")
	assert.Equal(t, m.CategoryPages, verdict.Category)
	assert.True(t, verdict.PreserveLocation)
}

func TestClassify_ComponentPerFolder(t *testing.T) {
	c := newDefaultClassifier(t)

	t.Run("capitalized tsx gets its own folder", func(t *testing.T) {
		verdict := c.Classify("src/Widget.tsx")
		require.Equal(t, m.CategoryComponents, verdict.Category)
		assert.Equal(t, "Widget", verdict.ComponentDir)
	})

	t.Run("lowercase jsx does not", func(t *testing.T) {
		verdict := c.Classify("src/widget.jsx")
		require.Equal(t, m.CategoryComponents, verdict.Category)
		assert.Empty(t, verdict.ComponentDir)
	})
}

func TestClassify_UtilsSubfolders(t *testing.T) {
	c := newDefaultClassifier(t)

	verdict := c.Classify("src/lib/validateEmail.js")
	require.Equal(t, m.CategoryUtils, verdict.Category)
	assert.Equal(t, "validation", verdict.Subfolder)

	verdict = c.Classify("src/lib/formatDate.js")
	require.Equal(t, m.CategoryUtils, verdict.Category)
	assert.Equal(t, "formatting", verdict.Subfolder)
}

func TestNewClassifier_BadPattern(t *testing.T) {
	policy := DefaultPolicy()
	policy.Categories[0].Patterns = []string{"("}

	_, err := NewClassifier(policy)
	require.Error(t, err)
}
