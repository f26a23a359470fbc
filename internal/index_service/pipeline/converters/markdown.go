package converters

import (
	"context"
	"os"
	"regexp"
	"strings"

	"docindex/internal/index_service/pipeline"
	"docindex/internal/index_service/pipeline/schema"
	"docindex/pkg/logger"
)

// MarkdownConverter strips markdown syntax down to the plain text it formats.
// Content order is preserved; only markup is removed.
type MarkdownConverter struct {
	base
}

// NewMarkdown creates a MarkdownConverter.
func NewMarkdown(params Params, log *logger.Logger) *MarkdownConverter {
	return &MarkdownConverter{base: base{params: params, log: log}}
}

var (
	codeFenceRegex  = regexp.MustCompile("(?m)^```.*$")
	imageRegex      = regexp.MustCompile(`!\[(.*?)\]\(.*?\)`)
	linkRegex       = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	headingRegex    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	blockquoteRegex = regexp.MustCompile(`(?m)^>\s?`)
	listMarkerRegex = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	hruleRegex      = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	emphasisRegex   = regexp.MustCompile(`(\*{1,3}|_{1,3})(\S(?:.*?\S)?)(\*{1,3}|_{1,3})`)
	inlineCodeRegex = regexp.MustCompile("`([^`]*)`")
	htmlTagRegex    = regexp.MustCompile(`<[^>]+>`)
)

// Run loads the markdown file and converts it to plain text.
func (c *MarkdownConverter) Run(ctx context.Context, p *pipeline.Payload) (string, error) {
	content, err := os.ReadFile(p.FilePath)
	if err != nil {
		return "", err
	}
	p.Docs = []*schema.Document{c.document(p, stripMarkdown(string(content)))}
	return pipeline.DefaultOutput, nil
}

func stripMarkdown(text string) string {
	text = codeFenceRegex.ReplaceAllString(text, "")
	text = imageRegex.ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = headingRegex.ReplaceAllString(text, "")
	text = blockquoteRegex.ReplaceAllString(text, "")
	text = hruleRegex.ReplaceAllString(text, "")
	text = listMarkerRegex.ReplaceAllString(text, "")
	text = emphasisRegex.ReplaceAllString(text, "$2")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = htmlTagRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

var _ pipeline.Node = (*MarkdownConverter)(nil)
