package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/config"
	"docindex/internal/index_service/service"
	"docindex/internal/index_service/storage/vectorstore"
	"docindex/pkg/logger"
)

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, f.dim)
	}
	return vectors, nil
}

type testEnv struct {
	router    *gin.Engine
	store     *vectorstore.MemoryStore
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Server: config.ServerConfig{ConcurrentRequestPerWorker: 2},
		Store:  config.StoreConfig{Type: "memory", EmbeddingDim: 8, MetricType: "IP"},
		Preprocessor: config.PreprocessorConfig{
			CleanWhitespace: true,
			CleanEmptyLines: true,
			SplitBy:         "sentence",
			SplitLength:     50,
		},
	}

	store := vectorstore.NewMemoryStore()
	log := logger.New("test", "")
	svc := service.New(log, store, &fakeEmbedder{dim: 8}, cfg, nil)
	uploadDir := t.TempDir()

	return &testEnv{
		router:    NewRouter(cfg, NewHandler(log, svc, uploadDir)),
		store:     store,
		uploadDir: uploadDir,
	}
}

// multipartBody builds a multipart request body from named files and plain
// form fields.
func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (e *testEnv) post(t *testing.T, files map[string]string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/index", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) spooledFiles(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	require.NoError(t, err)
	return entries
}

func TestIndex_IndexesUploadedFiles(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t,
		map[string]string{
			"a.txt": "Content of the first file.",
			"b.txt": "Content of the second file.",
		},
		map[string]string{"meta": `{"index": "docs-a"}`},
	)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, 2, env.store.Count("docs-a"))
	// Spooled uploads are removed on success.
	assert.Empty(t, env.spooledFiles(t))
}

func TestIndex_InvalidMetaRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t,
		map[string]string{"a.txt": "Some content."},
		map[string]string{"meta": `[1, 2, 3]`},
	)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "JSON object or null")
	// The request was rejected before any file touched disk or the store.
	assert.Empty(t, env.store.Collections())
	assert.Empty(t, env.spooledFiles(t))
}

func TestIndex_MalformedMetaRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t,
		map[string]string{"a.txt": "Some content."},
		map[string]string{"meta": `{"index":`},
	)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, env.store.Collections())
}

func TestIndex_MissingCollectionLeavesSpooledFiles(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t,
		map[string]string{"a.txt": "Some content."},
		map[string]string{"meta": `{"author": "jane"}`},
	)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "index")
	// Failed requests keep the spooled upload for inspection.
	assert.Len(t, env.spooledFiles(t), 1)
}

func TestIndex_NoFiles(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t, nil, map[string]string{"meta": `{"index": "docs"}`})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "no files")
}

func TestIndex_FormOverridesApply(t *testing.T) {
	env := newTestEnv(t)

	var sentences string
	for i := 0; i < 6; i++ {
		sentences += fmt.Sprintf("Sentence number %d. ", i)
	}

	w := env.post(t,
		map[string]string{"a.txt": sentences},
		map[string]string{
			"meta":         `{"index": "docs"}`,
			"split_length": "2",
		},
	)

	assert.Equal(t, http.StatusOK, w.Code)
	// Six sentences at two per passage.
	assert.Equal(t, 3, env.store.Count("docs"))
}

func TestIndex_InvalidOverrideRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t,
		map[string]string{"a.txt": "Some content."},
		map[string]string{
			"meta":     `{"index": "docs"}`,
			"split_by": "chapter",
		},
	)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, env.store.Collections())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
