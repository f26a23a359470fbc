package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docindex/internal/index_service/pipeline/schema"
	"docindex/internal/index_service/service"
	"docindex/pkg/logger"
)

// Handler exposes the file indexing endpoint.
type Handler struct {
	log        *logger.Logger
	service    *service.Service
	uploadPath string
}

// NewHandler creates the endpoint handler. Uploaded files are spooled to
// uploadPath under collision-free names before the pipeline runs.
func NewHandler(log *logger.Logger, svc *service.Service, uploadPath string) *Handler {
	return &Handler{log: log, service: svc, uploadPath: uploadPath}
}

// indexParams are the optional per-request overrides for converter and
// preprocessor behavior. Every field is independently optional; absence
// means "use pipeline default".
type indexParams struct {
	RemoveNumericTables *bool    `form:"remove_numeric_tables"`
	ValidLanguages      []string `form:"valid_languages"`

	CleanWhitespace              *bool   `form:"clean_whitespace"`
	CleanEmptyLines              *bool   `form:"clean_empty_lines"`
	CleanHeaderFooter            *bool   `form:"clean_header_footer"`
	SplitBy                      *string `form:"split_by"`
	SplitLength                  *int    `form:"split_length"`
	SplitOverlap                 *int    `form:"split_overlap"`
	SplitRespectSentenceBoundary *bool   `form:"split_respect_sentence_boundary"`
}

// Index handles POST /index: multipart file parts plus an optional JSON
// metadata string and optional form overrides. On success the response is
// an empty 200. The metadata is validated before any file is persisted.
func (h *Handler) Index(c *gin.Context) {
	log := h.log.WithField("trace_id", uuid.New().String())

	meta, err := parseMeta(c.DefaultPostForm("meta", "null"))
	if err != nil {
		log.Warn(fmt.Sprintf("Rejecting request with invalid metadata: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var params indexParams
	if err := c.ShouldBind(&params); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("invalid form parameters: %v", err)})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}

	var (
		paths []string
		metas []map[string]interface{}
	)
	for _, file := range form.File["files"] {
		name := filepath.Base(file.Filename)
		dst := filepath.Join(h.uploadPath, fmt.Sprintf("%s_%s", randomHex(), name))
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to store upload %s: %v", name, err)})
			return
		}

		fileMeta := schema.CopyMetadata(meta)
		fileMeta[schema.MetaKeyName] = name
		paths = append(paths, dst)
		metas = append(metas, fileMeta)
	}

	if err := h.service.IndexFiles(c.Request.Context(), paths, metas, overrides(params)); err != nil {
		log.Error(fmt.Sprintf("Indexing failed: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Spooled files are only removed on success; failure paths leave them
	// behind for inspection.
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			log.Warn(fmt.Sprintf("Failed to remove spooled upload %s: %v", path, err))
		}
	}
	c.Status(http.StatusOK)
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "docindex"})
}

// parseMeta decodes the serialized metadata field. It must decode to a JSON
// object or null; anything else rejects the request.
func parseMeta(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]interface{}{}, nil
	}

	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("the meta field must be a JSON object or null: %v", err)
	}
	if value == nil {
		return map[string]interface{}{}, nil
	}
	object, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("the meta field must be a JSON object or null, not %T", value)
	}
	return object, nil
}

// randomHex returns a collision-free prefix for spooled upload names.
func randomHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func overrides(params indexParams) service.Overrides {
	return service.Overrides{
		Converter: service.ConverterOverrides{
			RemoveNumericTables: params.RemoveNumericTables,
			ValidLanguages:      params.ValidLanguages,
		},
		Preprocessor: service.PreprocessorOverrides{
			CleanWhitespace:              params.CleanWhitespace,
			CleanEmptyLines:              params.CleanEmptyLines,
			CleanHeaderFooter:            params.CleanHeaderFooter,
			SplitBy:                      params.SplitBy,
			SplitLength:                  params.SplitLength,
			SplitOverlap:                 params.SplitOverlap,
			SplitRespectSentenceBoundary: params.SplitRespectSentenceBoundary,
		},
	}
}
