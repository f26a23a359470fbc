package vectorstore

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docindex/internal/database/milvus"
	"docindex/internal/index_service/pipeline/schema"
	"docindex/pkg/logger"
)

// Field names of the Milvus collection schema.
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldText      = "text"
	FieldEmbedding = "embedding"
)

// MilvusStore adapts the shared Milvus client to the Store interface.
// Upserts on the VarChar primary key give the overwrite-on-duplicate
// semantics the pipeline relies on.
type MilvusStore struct {
	log    *logger.Logger
	client client.Client
	metric entity.MetricType
}

// NewMilvusStore creates a MilvusStore on top of the shared client wrapper.
// The metric must match the one used at query time; "IP" is dot product.
func NewMilvusStore(milvusClient *milvus.MilvusClient, metricType string, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{
		log:    log,
		client: milvusClient.Client,
		metric: entity.MetricType(metricType),
	}, nil
}

// EnsureCollection creates and loads the collection if it does not exist.
func (s *MilvusStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if !exists {
		collSchema := entity.NewSchema().WithName(name).
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldName).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512)).
			WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))

		if err := s.client.CreateCollection(ctx, collSchema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}

		idx, err := entity.NewIndexIvfFlat(s.metric, 128)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := s.client.CreateIndex(ctx, name, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
		s.log.Info(fmt.Sprintf("Created collection %s (dim=%d, metric=%s)", name, dim, s.metric))
	}

	if err := s.client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes the documents into the collection. Colliding primary keys
// overwrite the stored document instead of duplicating it.
func (s *MilvusStore) Upsert(ctx context.Context, collection string, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	names := make([]string, len(docs))
	texts := make([]string, len(docs))
	embeddings := make([][]float32, len(docs))

	dim := 0
	for i, doc := range docs {
		ids[i] = doc.ID
		texts[i] = doc.Text
		embeddings[i] = doc.Embedding
		if len(doc.Embedding) > dim {
			dim = len(doc.Embedding)
		}
		if n, ok := doc.Metadata[schema.MetaKeyName].(string); ok {
			names[i] = n
		}
	}

	idCol := entity.NewColumnVarChar(FieldID, ids)
	nameCol := entity.NewColumnVarChar(FieldName, names)
	textCol := entity.NewColumnVarChar(FieldText, texts)
	embeddingCol := entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings)

	s.log.Info(fmt.Sprintf("Upserting %d passages into collection %s", len(docs), collection))
	if _, err := s.client.Upsert(ctx, collection, "" /* default partition */, idCol, nameCol, textCol, embeddingCol); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", collection, err)
	}
	return nil
}

var _ Store = (*MilvusStore)(nil)
