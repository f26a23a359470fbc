package converters

import (
	"context"
	"os"

	"docindex/internal/index_service/pipeline"
	"docindex/internal/index_service/pipeline/schema"
	"docindex/pkg/logger"
)

// TextConverter reads plain text files verbatim.
type TextConverter struct {
	base
}

// NewText creates a TextConverter.
func NewText(params Params, log *logger.Logger) *TextConverter {
	return &TextConverter{base: base{params: params, log: log}}
}

// Run loads the file content as-is into a single document.
func (c *TextConverter) Run(ctx context.Context, p *pipeline.Payload) (string, error) {
	content, err := os.ReadFile(p.FilePath)
	if err != nil {
		return "", err
	}
	p.Docs = []*schema.Document{c.document(p, string(content))}
	return pipeline.DefaultOutput, nil
}

var _ pipeline.Node = (*TextConverter)(nil)
