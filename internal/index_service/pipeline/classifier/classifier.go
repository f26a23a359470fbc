// Package classifier assigns each uploaded file to one of the supported
// conversion branches based on its extension, falling back to MIME sniffing
// of the file content when the extension is missing or unknown.
package classifier

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docindex/internal/index_service/pipeline"
)

// FileType is the classification result for an uploaded file.
type FileType int

const (
	// Unknown files match no conversion branch and are dropped.
	Unknown FileType = iota
	// PlainText covers .txt and other text/plain content.
	PlainText
	// PDF covers application/pdf content.
	PDF
	// Markdown covers .md and .markdown content.
	Markdown
)

// Output channels, one per conversion branch. Unknown has no channel: the
// classifier emits nothing and the file never reaches a converter.
const (
	OutputText     = "output_1"
	OutputPDF      = "output_2"
	OutputMarkdown = "output_3"
)

// FileTypeClassifier is the fan-out node at the head of the pipeline.
type FileTypeClassifier struct{}

// New creates a FileTypeClassifier.
func New() *FileTypeClassifier {
	return &FileTypeClassifier{}
}

// Classify determines the file type of the file at path. The extension is
// authoritative when recognized; otherwise the content is sniffed.
func (c *FileTypeClassifier) Classify(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return PlainText
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return Unknown
	}
	switch {
	case mtype.Is("application/pdf"):
		return PDF
	case mtype.Is("text/markdown"):
		return Markdown
	case mtype.Is("text/plain"):
		return PlainText
	}
	return Unknown
}

// Run emits the output channel of the matching conversion branch, or no
// channel at all for unsupported file types.
func (c *FileTypeClassifier) Run(ctx context.Context, p *pipeline.Payload) (string, error) {
	switch c.Classify(p.FilePath) {
	case PlainText:
		return OutputText, nil
	case PDF:
		return OutputPDF, nil
	case Markdown:
		return OutputMarkdown, nil
	}
	return "", nil
}

var _ pipeline.Node = (*FileTypeClassifier)(nil)
