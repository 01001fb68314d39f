package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdesk/backend/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadReadsTextAndMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "faq.md", "# Refunds\nFull refund within 30 days.\n")
	writeFile(t, dir, "notes.txt", "  plain text with padding  ")

	docs, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byName := map[string]string{}
	for _, d := range docs {
		byName[d.Name] = d.Text
	}

	assert.Equal(t, "# Refunds\nFull refund within 30 days.", byName["faq.md"])
	assert.Equal(t, "plain text with padding", byName["notes.txt"])
}

func TestLoadRecursesIntoSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "billing")
	require.NoError(t, os.Mkdir(sub, 0755))
	writeFile(t, sub, "invoices.md", "# Invoices\nMonthly on the 1st.")

	docs, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "invoices.md", docs[0].Name)
}

func TestLoadSkipsEmptyAndUnrecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "real.md", "content")
	writeFile(t, dir, "empty.md", "   \n\n ")
	writeFile(t, dir, "image.png", "binary junk")
	writeFile(t, dir, "data.json", `{"not": "docs"}`)

	docs, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "real.md", docs[0].Name)
}

func TestLoadExtractsHTMLBodyText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page.html", `<html><head><title>t</title><style>p{}</style></head>
<body><script>var x;</script><nav>menu</nav><p>Visible   policy text.</p></body></html>`)

	docs, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Visible policy text.", docs[0].Text)
	assert.NotContains(t, docs[0].Text, "var x")
	assert.NotContains(t, docs[0].Text, "menu")
}

func TestLoadMissingDirectoryIsConfigurationError(t *testing.T) {
	_, err := NewLoader("/nonexistent/corpus/path").Load()
	require.Error(t, err)
	assert.True(t, domain.IsConfiguration(err))
}

func TestLoadEmptyCorpusIsConfigurationError(t *testing.T) {
	t.Run("no files at all", func(t *testing.T) {
		_, err := NewLoader(t.TempDir()).Load()
		require.Error(t, err)
		assert.True(t, domain.IsConfiguration(err))
	})

	t.Run("only empty files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "blank.txt", "\n\n")
		_, err := NewLoader(dir).Load()
		require.Error(t, err)
		assert.True(t, domain.IsConfiguration(err))
	})
}
