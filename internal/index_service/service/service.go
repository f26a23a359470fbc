// Package service assembles the indexing pipeline once per request and
// drives every uploaded file of the request through it.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	miniogo "github.com/minio/minio-go/v7"

	"docindex/internal/config"
	"docindex/internal/embedding"
	"docindex/internal/index_service/pipeline"
	"docindex/internal/index_service/pipeline/classifier"
	"docindex/internal/index_service/pipeline/converters"
	"docindex/internal/index_service/pipeline/preprocessor"
	"docindex/internal/index_service/pipeline/schema"
	"docindex/internal/index_service/storage/vectorstore"
	"docindex/pkg/logger"
)

// ErrNoFiles is returned when a request carries no files to index.
var ErrNoFiles = errors.New("no files to index")

// ErrNoCollection is returned when the first file's metadata does not name
// the target collection.
var ErrNoCollection = errors.New("metadata of the first file must carry the target collection under the \"index\" key")

// ConverterOverrides are the per-request converter parameter overrides. Nil
// fields fall back to the configured defaults.
type ConverterOverrides struct {
	RemoveNumericTables *bool
	ValidLanguages      []string
}

// PreprocessorOverrides are the per-request preprocessor parameter
// overrides. Nil fields fall back to the configured defaults.
type PreprocessorOverrides struct {
	CleanWhitespace              *bool
	CleanEmptyLines              *bool
	CleanHeaderFooter            *bool
	SplitBy                      *string
	SplitLength                  *int
	SplitOverlap                 *int
	SplitRespectSentenceBoundary *bool
}

// Overrides bundles all per-request parameter overrides.
type Overrides struct {
	Converter    ConverterOverrides
	Preprocessor PreprocessorOverrides
}

// Service owns the long-lived dependencies of the indexing endpoint: the
// vector store connection, the embedding model and the configured defaults.
// The pipeline itself is request-scoped.
type Service struct {
	log           *logger.Logger
	store         vectorstore.Store
	embedder      embedding.Embedding
	dim           int
	converter     converters.Params
	preprocessor  preprocessor.Params
	archiveClient *miniogo.Client
	archiveBucket string
}

// New creates the indexing service. archiveClient may be nil when upload
// archival is disabled.
func New(
	log *logger.Logger,
	store vectorstore.Store,
	embedder embedding.Embedding,
	cfg *config.AppConfig,
	archiveClient *miniogo.Client,
) *Service {
	return &Service{
		log:      log,
		store:    store,
		embedder: embedder,
		dim:      cfg.Store.EmbeddingDim,
		converter: converters.Params{
			RemoveNumericTables: cfg.Converter.RemoveNumericTables,
			ValidLanguages:      cfg.Converter.ValidLanguages,
		},
		preprocessor: preprocessor.Params{
			CleanWhitespace:              cfg.Preprocessor.CleanWhitespace,
			CleanEmptyLines:              cfg.Preprocessor.CleanEmptyLines,
			CleanHeaderFooter:            cfg.Preprocessor.CleanHeaderFooter,
			SplitBy:                      cfg.Preprocessor.SplitBy,
			SplitLength:                  cfg.Preprocessor.SplitLength,
			SplitOverlap:                 cfg.Preprocessor.SplitOverlap,
			SplitRespectSentenceBoundary: cfg.Preprocessor.SplitRespectSentenceBoundary,
		},
		archiveClient: archiveClient,
		archiveBucket: cfg.Archive.Bucket,
	}
}

// IndexFiles runs every (file path, metadata) pair through a freshly
// assembled pipeline. The target collection comes from the first file's
// metadata and applies to the whole batch. Nothing is returned beyond the
// error; writes of earlier files are not rolled back when a later file
// fails.
func (s *Service) IndexFiles(ctx context.Context, paths []string, metas []map[string]interface{}, ov Overrides) error {
	if len(paths) == 0 {
		return ErrNoFiles
	}
	collection, ok := metas[0][schema.MetaKeyIndex].(string)
	if !ok || collection == "" {
		return ErrNoCollection
	}

	s.archiveUploads(ctx, paths)

	pre, err := preprocessor.New(s.preprocessorParams(ov.Preprocessor))
	if err != nil {
		return err
	}
	convParams := s.converterParams(ov.Converter)

	p := pipeline.New(s.log)
	wiring := []struct {
		component pipeline.Node
		name      string
		inputs    []string
	}{
		{classifier.New(), "FileTypeClassifier", []string{pipeline.EntryPoint}},
		{converters.NewText(convParams, s.log), "TextConverter", []string{"FileTypeClassifier." + classifier.OutputText}},
		{converters.NewPDF(convParams, s.log), "PDFConverter", []string{"FileTypeClassifier." + classifier.OutputPDF}},
		{converters.NewMarkdown(convParams, s.log), "MarkdownConverter", []string{"FileTypeClassifier." + classifier.OutputMarkdown}},
		{pre, "Preprocessor", []string{"TextConverter", "PDFConverter", "MarkdownConverter"}},
		{pipeline.NewEmbedderNode(s.embedder, s.dim), "Embedder", []string{"Preprocessor"}},
		{pipeline.NewStoreWriter(s.store, collection), "DocumentStore", []string{"Embedder"}},
	}
	for _, w := range wiring {
		if err := p.AddNode(w.component, w.name, w.inputs); err != nil {
			return fmt.Errorf("failed to assemble pipeline: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("failed to assemble pipeline: %w", err)
	}

	if err := s.store.EnsureCollection(ctx, collection, s.dim); err != nil {
		return err
	}

	s.log.Info(fmt.Sprintf("Indexing %d files into collection %s", len(paths), collection))
	return p.Run(ctx, paths, metas)
}

// archiveUploads copies the raw uploads to object storage when archival is
// enabled. Archival failures are logged but never fail the request.
func (s *Service) archiveUploads(ctx context.Context, paths []string) {
	if s.archiveClient == nil {
		return
	}
	for _, path := range paths {
		object := filepath.Base(path)
		_, err := s.archiveClient.FPutObject(ctx, s.archiveBucket, object, path, miniogo.PutObjectOptions{})
		if err != nil {
			s.log.Warn(fmt.Sprintf("Failed to archive upload %s: %v", object, err))
		}
	}
}

func (s *Service) converterParams(ov ConverterOverrides) converters.Params {
	params := s.converter
	if ov.RemoveNumericTables != nil {
		params.RemoveNumericTables = *ov.RemoveNumericTables
	}
	if ov.ValidLanguages != nil {
		params.ValidLanguages = ov.ValidLanguages
	}
	return params
}

func (s *Service) preprocessorParams(ov PreprocessorOverrides) preprocessor.Params {
	params := s.preprocessor
	if ov.CleanWhitespace != nil {
		params.CleanWhitespace = *ov.CleanWhitespace
	}
	if ov.CleanEmptyLines != nil {
		params.CleanEmptyLines = *ov.CleanEmptyLines
	}
	if ov.CleanHeaderFooter != nil {
		params.CleanHeaderFooter = *ov.CleanHeaderFooter
	}
	if ov.SplitBy != nil {
		params.SplitBy = *ov.SplitBy
	}
	if ov.SplitLength != nil {
		params.SplitLength = *ov.SplitLength
	}
	if ov.SplitOverlap != nil {
		params.SplitOverlap = *ov.SplitOverlap
	}
	if ov.SplitRespectSentenceBoundary != nil {
		params.SplitRespectSentenceBoundary = *ov.SplitRespectSentenceBoundary
	}
	return params
}
