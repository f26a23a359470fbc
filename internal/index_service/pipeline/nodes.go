package pipeline

import (
	"context"
	"fmt"

	"docindex/internal/embedding"
	"docindex/internal/index_service/storage/vectorstore"
)

// EmbedderNode maps each passage's text to a fixed-length dense vector. The
// expected dimension comes from the store configuration and has to match the
// model output, otherwise retrieval quality degrades silently at query time.
type EmbedderNode struct {
	model embedding.Embedding
	dim   int
}

// NewEmbedderNode creates an embedder stage bound to a model and the
// configured vector dimension.
func NewEmbedderNode(model embedding.Embedding, dim int) *EmbedderNode {
	return &EmbedderNode{model: model, dim: dim}
}

// Run batch-embeds all passages of the current file and attaches the vectors
// in place.
func (n *EmbedderNode) Run(ctx context.Context, p *Payload) (string, error) {
	if len(p.Docs) == 0 {
		return "", nil
	}

	texts := make([]string, len(p.Docs))
	for i, doc := range p.Docs {
		texts[i] = doc.Text
	}

	vectors, err := n.model.EmbedBatch(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("failed to embed %d passages: %w", len(texts), err)
	}
	if len(vectors) != len(p.Docs) {
		return "", fmt.Errorf("embedding model returned %d vectors for %d passages", len(vectors), len(p.Docs))
	}
	for i, vec := range vectors {
		if len(vec) != n.dim {
			return "", fmt.Errorf("embedding dimension %d does not match configured dimension %d", len(vec), n.dim)
		}
		p.Docs[i].Embedding = vec
	}
	return DefaultOutput, nil
}

// StoreWriter is the terminal node: it upserts the embedded passages into
// one named collection of the vector store. Documents with colliding content
// identity overwrite the earlier write.
type StoreWriter struct {
	store      vectorstore.Store
	collection string
}

// NewStoreWriter creates the terminal store stage bound to a collection.
func NewStoreWriter(store vectorstore.Store, collection string) *StoreWriter {
	return &StoreWriter{store: store, collection: collection}
}

// Run persists the passages. Ownership of the documents transfers to the
// store; nothing is retained in the pipeline afterwards.
func (n *StoreWriter) Run(ctx context.Context, p *Payload) (string, error) {
	if len(p.Docs) == 0 {
		return "", nil
	}
	if err := n.store.Upsert(ctx, n.collection, p.Docs); err != nil {
		return "", fmt.Errorf("failed to write %d passages to collection %s: %w", len(p.Docs), n.collection, err)
	}
	return DefaultOutput, nil
}

var _ Node = (*EmbedderNode)(nil)
var _ Node = (*StoreWriter)(nil)
