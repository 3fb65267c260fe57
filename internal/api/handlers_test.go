package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"autofill/internal/models"
	"autofill/internal/service"
)

type fakeService struct {
	ingestResult *service.IngestResult
	ingestErr    error
	answer       models.RetrievalAnswer
	results      []models.FieldResult
	specs        []models.FieldSpec
	schemaErr    error
	filled       []byte
	fillErr      error
	resetErr     error

	lastSessionID string
	lastMode      models.AnswerMode
}

func (f *fakeService) IngestAndIndex(ctx context.Context, sessionID, filename string, data []byte) (*service.IngestResult, error) {
	f.lastSessionID = sessionID
	return f.ingestResult, f.ingestErr
}

func (f *fakeService) Answer(ctx context.Context, sessionID, question string, mode models.AnswerMode) models.RetrievalAnswer {
	f.lastSessionID = sessionID
	f.lastMode = mode
	return f.answer
}

func (f *fakeService) Extract(ctx context.Context, sessionID string, specs []models.FieldSpec, mode models.AnswerMode) []models.FieldResult {
	f.lastSessionID = sessionID
	f.lastMode = mode
	return f.results
}

func (f *fakeService) InferSchema(ctx context.Context, data []byte, filename string) ([]models.FieldSpec, error) {
	return f.specs, f.schemaErr
}

func (f *fakeService) Fill(ctx context.Context, sessionID, filename string, template []byte, results []models.FieldResult) ([]byte, error) {
	return f.filled, f.fillErr
}

func (f *fakeService) ResetSession(ctx context.Context, sessionID string) error {
	f.lastSessionID = sessionID
	return f.resetErr
}

func newTestRouter(svc AutofillService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, NewAPI(svc))
	return router
}

func multipartBody(t *testing.T, fileField, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	fw, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	svc := &fakeService{ingestResult: &service.IngestResult{IndexedCount: 4}}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t, "file", "report.txt", []byte("Revenue: $2M"),
		map[string]string{"session_id": "s1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.lastSessionID != "s1" {
		t.Errorf("session = %q, want s1", svc.lastSessionID)
	}
	var resp service.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.IndexedCount != 4 {
		t.Errorf("indexed_count = %d, want 4", resp.IndexedCount)
	}
}

func TestUploadDocumentMissingSession(t *testing.T) {
	router := newTestRouter(&fakeService{})

	body, contentType := multipartBody(t, "file", "report.txt", []byte("x"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadDocumentParseErrorIs400(t *testing.T) {
	svc := &fakeService{ingestErr: &models.ParseError{Filename: "bad.png"}}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t, "file", "bad.png", []byte{0xff}, map[string]string{"session_id": "s1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQuery(t *testing.T) {
	svc := &fakeService{answer: models.RetrievalAnswer{
		Answer:          "The revenue is $2M.",
		SourceDocuments: []string{"report.pdf"},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"session_id":"s1","question":"What is the revenue?","mode":"agentic"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.lastMode != models.ModeAgentic {
		t.Errorf("mode = %s, want agentic", svc.lastMode)
	}

	var resp struct {
		Answer          string   `json:"answer"`
		SourceDocuments []string `json:"source_documents"`
		Degraded        bool     `json:"degraded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Answer != "The revenue is $2M." || len(resp.SourceDocuments) != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Degraded {
		t.Error("degraded should be false")
	}
}

func TestQueryMissingFields(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"session_id":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExtractRejectsDuplicateKeys(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract",
		strings.NewReader(`{"session_id":"s1","fields":[
			{"key":"a","description":"d","data_type":"string"},
			{"key":"a","description":"d2","data_type":"string"}]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "duplicate") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestExtract(t *testing.T) {
	svc := &fakeService{results: []models.FieldResult{
		{Key: "revenue", Value: float64(2000000), Source: "report.pdf", Confidence: models.ConfidenceHigh},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract",
		strings.NewReader(`{"session_id":"s1","fields":[{"key":"revenue","description":"What is the revenue?","data_type":"number"}]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.lastMode != models.ModeDirect {
		t.Errorf("mode = %s, want direct default", svc.lastMode)
	}
	if !strings.Contains(rec.Body.String(), `"confidence":"High"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestInferSchemaBadOutputIs502(t *testing.T) {
	svc := &fakeService{schemaErr: &models.SchemaInferenceError{}}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t, "file", "form.pdf", []byte("%PDF"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schema", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestFillUnsupportedFormatIs400(t *testing.T) {
	svc := &fakeService{fillErr: &models.UnsupportedFormatError{Filename: "template.txt"}}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t, "template", "template.txt", []byte("x"),
		map[string]string{"session_id": "s1", "results": `[]`})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fill", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFillReturnsAttachment(t *testing.T) {
	svc := &fakeService{filled: []byte("filled-bytes")}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t, "template", "form.docx", []byte("template"),
		map[string]string{"session_id": "s1", "results": `[{"key":"amount","value":500000}]`})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fill", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "filled-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "filled_form.docx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestResetSession(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/reset",
		strings.NewReader(`{"session_id":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastSessionID != "s1" {
		t.Errorf("session = %q", svc.lastSessionID)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
