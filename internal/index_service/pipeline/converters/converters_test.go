package converters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/index_service/pipeline"
	"docindex/internal/index_service/pipeline/schema"
	"docindex/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New("test", "")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextConverter(t *testing.T) {
	c := NewText(Params{}, testLogger())
	p := &pipeline.Payload{
		FilePath: writeFile(t, "notes.txt", "hello world"),
		Meta:     map[string]interface{}{"index": "docs", "name": "notes.txt"},
	}

	out, err := c.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, pipeline.DefaultOutput, out)
	require.Len(t, p.Docs, 1)

	doc := p.Docs[0]
	assert.Equal(t, "hello world", doc.Text)
	assert.Equal(t, schema.ContentID("hello world"), doc.ID)
	assert.Equal(t, "docs", doc.Metadata["index"])

	// The document must not share the payload's metadata map.
	doc.Metadata["extra"] = true
	_, shared := p.Meta["extra"]
	assert.False(t, shared)
}

func TestTextConverter_MissingFile(t *testing.T) {
	c := NewText(Params{}, testLogger())
	p := &pipeline.Payload{FilePath: filepath.Join(t.TempDir(), "gone.txt")}

	_, err := c.Run(context.Background(), p)
	assert.Error(t, err)
}

func TestRemoveNumericTableLines(t *testing.T) {
	text := "Quarterly results follow.\n" +
		"2021 42 17 99\n" +
		"Revenue grew by 12 percent in 2021.\n" +
		"13 37 4 8 15 16 23 42\n" +
		"The end."

	cleaned := removeNumericTableLines(text)
	assert.NotContains(t, cleaned, "2021 42 17 99")
	assert.NotContains(t, cleaned, "13 37 4 8")
	assert.Contains(t, cleaned, "Quarterly results follow.")
	assert.Contains(t, cleaned, "Revenue grew by 12 percent in 2021.")
}

func TestTextConverter_RemoveNumericTablesParam(t *testing.T) {
	content := "Prose line one.\n1 2 3 4 5\nProse line two."
	c := NewText(Params{RemoveNumericTables: true}, testLogger())
	p := &pipeline.Payload{FilePath: writeFile(t, "table.txt", content)}

	_, err := c.Run(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, p.Docs, 1)
	assert.NotContains(t, p.Docs[0].Text, "1 2 3 4 5")
}

func TestStripMarkdown(t *testing.T) {
	md := "# Title\n\n" +
		"Some *emphasized* and **bold** text with `code`.\n\n" +
		"- first item\n" +
		"- second item\n\n" +
		"> a quote\n\n" +
		"[a link](https://example.com) and ![an image](pic.png)\n\n" +
		"```\nfenced code\n```\n"

	text := stripMarkdown(md)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Some emphasized and bold text with code.")
	assert.Contains(t, text, "first item")
	assert.Contains(t, text, "a quote")
	assert.Contains(t, text, "a link")
	assert.Contains(t, text, "an image")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "](")
	assert.NotContains(t, text, "```")
}

func TestMarkdownConverter(t *testing.T) {
	c := NewMarkdown(Params{}, testLogger())
	p := &pipeline.Payload{
		FilePath: writeFile(t, "readme.md", "# Heading\n\nBody text."),
		Meta:     map[string]interface{}{"name": "readme.md"},
	}

	out, err := c.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, pipeline.DefaultOutput, out)
	require.Len(t, p.Docs, 1)
	assert.Equal(t, "Heading\n\nBody text.", p.Docs[0].Text)
}

func TestMatchesValidLanguages(t *testing.T) {
	assert.True(t, matchesValidLanguages("any text at all", nil))
	assert.True(t, matchesValidLanguages("plain english prose", []string{"en"}))
	assert.False(t, matchesValidLanguages("全部都是中文的文本内容没有拉丁字母", []string{"en"}))
}
