package converters

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docindex/internal/index_service/pipeline"
	"docindex/internal/index_service/pipeline/schema"
	"docindex/pkg/logger"
)

// PDFConverter extracts the text of every page of a PDF file. Pages are
// joined with form feeds so the preprocessor can detect header and footer
// boilerplate repeated across page breaks.
type PDFConverter struct {
	base
}

// NewPDF creates a PDFConverter.
func NewPDF(params Params, log *logger.Logger) *PDFConverter {
	return &PDFConverter{base: base{params: params, log: log}}
}

// Run extracts all page texts into a single document.
func (c *PDFConverter) Run(ctx context.Context, p *pipeline.Payload) (string, error) {
	f, reader, err := pdf.Open(p.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", p.FilePath, err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d of %s: %w", i, p.FilePath, err)
		}
		pages = append(pages, text)
	}

	p.Docs = []*schema.Document{c.document(p, strings.Join(pages, "\f"))}
	return pipeline.DefaultOutput, nil
}

var _ pipeline.Node = (*PDFConverter)(nil)
