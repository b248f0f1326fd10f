package display

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `
rules:
  - target:
      class: "http://purl.org/spar/fabio/Expression"
    priority: 5
    displayName: Bibliographic Resource
    displayProperties:
      - property: "http://purl.org/dc/terms/title"
        displayName: Title
  - target:
      class: "http://purl.org/spar/fabio/JournalArticle"
      shape: "http://schema.org/JournalArticleShape"
    priority: 1
    displayName: Journal Article
    displayProperties:
      - property: "http://purl.org/dc/terms/title"
        displayName: Title
        inputType: textarea
      - property: "http://purl.org/spar/pro/isDocumentContextFor"
        displayName: Contributors
        orderedBy: "https://w3id.org/oc/ontology/hasNext"
        displayRules:
          - shape: "http://schema.org/AuthorShape"
            displayName: Author
          - shape: "http://schema.org/EditorShape"
            displayName: Editor
            shouldBeDisplayed: false
      - property: "http://purl.org/spar/datacite/hasIdentifier"
        shouldBeDisplayed: false
  - target:
      class: "http://purl.org/spar/fabio/JournalArticle"
    priority: 3
    displayName: Article (generic)
`

func TestParseAndMatch(t *testing.T) {
	rules, err := Parse([]byte(rulesYAML))
	require.NoError(t, err)
	require.Len(t, rules.Rules, 3)

	t.Run("shape-specific rule beats class rule", func(t *testing.T) {
		rule, ok := rules.Match("http://purl.org/spar/fabio/JournalArticle", "http://schema.org/JournalArticleShape")
		require.True(t, ok)
		assert.Equal(t, "Journal Article", rule.DisplayName)
	})

	t.Run("class-only rule for other shapes", func(t *testing.T) {
		rule, ok := rules.Match("http://purl.org/spar/fabio/JournalArticle", "http://schema.org/OtherShape")
		require.True(t, ok)
		assert.Equal(t, "Article (generic)", rule.DisplayName)
	})

	t.Run("no rule", func(t *testing.T) {
		_, ok := rules.Match("http://example.org/Unknown", "")
		assert.False(t, ok)
		assert.True(t, rules.Visible("http://example.org/Unknown", ""))
	})

	t.Run("property order", func(t *testing.T) {
		order := rules.PropertyOrder("http://purl.org/spar/fabio/JournalArticle", "http://schema.org/JournalArticleShape")
		assert.Equal(t, []string{
			"http://purl.org/dc/terms/title",
			"http://purl.org/spar/pro/isDocumentContextFor",
			"http://purl.org/spar/datacite/hasIdentifier",
		}, order)
	})

	t.Run("sub-shape overrides", func(t *testing.T) {
		rule, _ := rules.Match("http://purl.org/spar/fabio/JournalArticle", "http://schema.org/JournalArticleShape")
		prop, ok := rule.Property("http://purl.org/spar/pro/isDocumentContextFor")
		require.True(t, ok)
		author, ok := prop.SubShape("http://schema.org/AuthorShape")
		require.True(t, ok)
		assert.Equal(t, "Author", author.DisplayName)
		editor, ok := prop.SubShape("http://schema.org/EditorShape")
		require.True(t, ok)
		require.NotNil(t, editor.ShouldBeDisplayed)
		assert.False(t, *editor.ShouldBeDisplayed)
		_, ok = prop.SubShape("")
		assert.False(t, ok)
	})

	t.Run("hidden property", func(t *testing.T) {
		rule, _ := rules.Match("http://purl.org/spar/fabio/JournalArticle", "http://schema.org/JournalArticleShape")
		prop, ok := rule.Property("http://purl.org/spar/datacite/hasIdentifier")
		require.True(t, ok)
		assert.False(t, prop.Visible())
	})

	t.Run("priority and display name", func(t *testing.T) {
		p, ok := rules.ClassPriority("http://purl.org/spar/fabio/Expression", "")
		require.True(t, ok)
		assert.Equal(t, 5, p)
		assert.Equal(t, "Bibliographic Resource", rules.ClassDisplayName("http://purl.org/spar/fabio/Expression", ""))
	})
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing class", "rules:\n  - displayName: x\n"},
		{"missing property", "rules:\n  - target: {class: a}\n    displayProperties:\n      - displayName: x\n"},
		{"missing sub-shape", "rules:\n  - target: {class: a}\n    displayProperties:\n      - property: p\n        displayRules:\n          - displayName: x\n"},
		{"malformed yaml", "rules: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "display_rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o644))

	rules, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, rules.Rules, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNilRules(t *testing.T) {
	var rules *Rules
	_, ok := rules.Match("a", "b")
	assert.False(t, ok)
	assert.Nil(t, rules.PropertyOrder("a", "b"))
}
