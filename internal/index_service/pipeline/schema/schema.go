package schema

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// MetaKeyName is the key carrying the original filename of the source upload.
	MetaKeyName = "name"
	// MetaKeyIndex is the key naming the target collection for a batch.
	MetaKeyIndex = "index"
	// MetaKeySplitID is the key carrying a passage's position within its source document.
	MetaKeySplitID = "_split_id"
)

// Document is the central data structure flowing through the indexing
// pipeline: first the full converted text of an uploaded file, then, after
// preprocessing, one bounded passage per Document.
type Document struct {
	// ID is the content identity of the document. Two documents with equal
	// normalized text share an ID, which is what gives writes their
	// overwrite-on-duplicate semantics.
	ID string

	// Text is the normalized plain text content.
	Text string

	// Embedding is the dense vector representation of Text, attached by the
	// embedder stage.
	Embedding []float32

	// Metadata holds arbitrary data about the document, such as the source
	// filename and the target collection.
	Metadata map[string]interface{}
}

// ContentID derives the identity of a document from its text alone.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CopyMetadata deep-copies a metadata map so passages never share maps with
// their source document or with each other.
func CopyMetadata(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
