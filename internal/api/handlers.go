package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"autofill/internal/models"
	"autofill/internal/service"
	"autofill/pkg/logger"
)

// AutofillService is the facade surface the HTTP layer drives.
type AutofillService interface {
	IngestAndIndex(ctx context.Context, sessionID, filename string, data []byte) (*service.IngestResult, error)
	Answer(ctx context.Context, sessionID, question string, mode models.AnswerMode) models.RetrievalAnswer
	Extract(ctx context.Context, sessionID string, specs []models.FieldSpec, mode models.AnswerMode) []models.FieldResult
	InferSchema(ctx context.Context, data []byte, filename string) ([]models.FieldSpec, error)
	Fill(ctx context.Context, sessionID, filename string, template []byte, results []models.FieldResult) ([]byte, error)
	ResetSession(ctx context.Context, sessionID string) error
}

// API provides the HTTP handlers.
type API struct {
	service AutofillService
	logger  *logger.Logger
}

// NewAPI creates the handler set over the given service.
func NewAPI(svc AutofillService) *API {
	return &API{service: svc, logger: logger.New("api", "")}
}

// UploadDocumentHandler ingests an uploaded reference document into the
// session's knowledge collection.
func (a *API) UploadDocumentHandler(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	filename, data, ok := a.readUpload(c, "file")
	if !ok {
		return
	}

	result, err := a.service.IngestAndIndex(c.Request.Context(), sessionID, filename, data)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// QueryHandler answers a free-form question against the session.
func (a *API) QueryHandler(c *gin.Context) {
	var payload struct {
		SessionID string `json:"session_id" binding:"required"`
		Question  string `json:"question" binding:"required"`
		Mode      string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	answer := a.service.Answer(c.Request.Context(), payload.SessionID, payload.Question, parseMode(payload.Mode))
	c.JSON(http.StatusOK, gin.H{
		"answer":           answer.Answer,
		"source_documents": answer.SourceDocuments,
		"degraded":         answer.Degraded,
	})
}

// ExtractHandler resolves a batch of field specifications.
func (a *API) ExtractHandler(c *gin.Context) {
	var payload struct {
		SessionID string             `json:"session_id" binding:"required"`
		Fields    []models.FieldSpec `json:"fields" binding:"required"`
		Mode      string             `json:"mode"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if msg, ok := validateFieldSpecs(payload.Fields); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	results := a.service.Extract(c.Request.Context(), payload.SessionID, payload.Fields, parseMode(payload.Mode))
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// InferSchemaHandler proposes field specifications for an uploaded blank
// form.
func (a *API) InferSchemaHandler(c *gin.Context) {
	filename, data, ok := a.readUpload(c, "file")
	if !ok {
		return
	}

	specs, err := a.service.InferSchema(c.Request.Context(), data, filename)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": specs})
}

// FillHandler populates an uploaded template with field results and returns
// the filled file.
func (a *API) FillHandler(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	var results []models.FieldResult
	if err := json.Unmarshal([]byte(c.PostForm("results")), &results); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "results must be a JSON list of field results"})
		return
	}

	filename, template, ok := a.readUpload(c, "template")
	if !ok {
		return
	}

	out, err := a.service.Fill(c.Request.Context(), sessionID, filename, template, results)
	if err != nil {
		a.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="filled_`+filename+`"`)
	c.Data(http.StatusOK, "application/octet-stream", out)
}

// ResetSessionHandler drops the session's knowledge collection.
func (a *API) ResetSessionHandler(c *gin.Context) {
	var payload struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if err := a.service.ResetSession(c.Request.Context(), payload.SessionID); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// HealthzHandler reports liveness.
func (a *API) HealthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readUpload pulls a multipart file out of the request. Responds with 400
// and returns ok=false when the part is missing or unreadable.
func (a *API) readUpload(c *gin.Context, field string) (string, []byte, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " upload is required"})
		return "", nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return "", nil, false
	}
	return fileHeader.Filename, data, true
}

// respondError maps the typed error taxonomy to HTTP statuses.
func (a *API) respondError(c *gin.Context, err error) {
	var (
		parseErr       *models.ParseError
		schemaErr      *models.SchemaInferenceError
		unsupportedErr *models.UnsupportedFormatError
		retrievalErr   *models.RetrievalError
	)
	switch {
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error()})
	case errors.As(err, &unsupportedErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": unsupportedErr.Error()})
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": schemaErr.Error()})
	case errors.As(err, &retrievalErr):
		a.logger.WithError(err).Error("backend failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal backend failure"})
	default:
		a.logger.WithError(err).Error("unhandled failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// validateFieldSpecs enforces non-empty, unique field keys.
func validateFieldSpecs(specs []models.FieldSpec) (string, bool) {
	if len(specs) == 0 {
		return "fields must not be empty", false
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Key == "" {
			return "field keys must not be empty", false
		}
		if _, ok := seen[spec.Key]; ok {
			return "duplicate field key: " + spec.Key, false
		}
		seen[spec.Key] = struct{}{}
	}
	return "", true
}

// parseMode maps the request's mode string to an AnswerMode, defaulting to
// direct.
func parseMode(mode string) models.AnswerMode {
	if mode == string(models.ModeAgentic) {
		return models.ModeAgentic
	}
	return models.ModeDirect
}
