package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/productsheet/backend/internal/domain"
	"github.com/productsheet/backend/internal/infrastructure/render"
)

const (
	serviceName    = "productsheet-backend"
	serviceVersion = "1.0.0"

	readyTimeout = 5 * time.Second
)

// Extractor runs the extraction pipeline
type Extractor interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error)
	Ready(ctx context.Context) bool
}

// SheetWriter stores rendered product sheets per session
type SheetWriter interface {
	Write(sessionID string, record domain.ProductRecord, format render.Format) ([]string, error)
	SessionDir(sessionID string) string
}

// TextReader turns an uploaded document into source text
type TextReader func(data []byte) (string, error)

// HandlerConfig holds upload limits and locations
type HandlerConfig struct {
	UploadDir      string
	MaxUploadBytes int64
	// CacheSize reports the number of cached records on /health when set.
	CacheSize func() int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	extractor Extractor
	sheets    SheetWriter
	readText  TextReader
	config    HandlerConfig
}

// NewHandler creates a new HTTP handler. A nil extractor makes the
// extraction endpoints answer 503.
func NewHandler(extractor Extractor, sheets SheetWriter, readText TextReader, config HandlerConfig) *Handler {
	return &Handler{
		extractor: extractor,
		sheets:    sheets,
		readText:  readText,
		config:    config,
	}
}

// OutputFile describes one generated file
type OutputFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ExtractResponse is returned by the extraction endpoints
type ExtractResponse struct {
	Success     bool                 `json:"success"`
	SessionID   string               `json:"session_id"`
	ProductName string               `json:"product_name"`
	Product     domain.ProductRecord `json:"product"`
	Segments    int                  `json:"segments"`
	Cached      bool                 `json:"cached"`
	Outputs     []OutputFile         `json:"outputs,omitempty"`
}

// TextRequest is the body of POST /api/v1/extract/text
type TextRequest struct {
	Text     string `json:"text" binding:"required"`
	Filename string `json:"filename"`
}

// HealthCheck returns the health status of the API and whether the model
// service answers.
func (h *Handler) HealthCheck(c *gin.Context) {
	modelReady := false
	if h.extractor != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		modelReady = h.extractor.Ready(ctx)
	}

	body := gin.H{
		"status":      "healthy",
		"service":     serviceName,
		"version":     serviceVersion,
		"model_ready": modelReady,
	}
	if h.config.CacheSize != nil {
		body["cached_records"] = h.config.CacheSize()
	}
	c.JSON(http.StatusOK, body)
}

// ExtractDocument handles PDF uploads: the document is stored, its text
// extracted and analysed, and the product sheet rendered.
func (h *Handler) ExtractDocument(c *gin.Context) {
	if h.extractor == nil {
		respondNotConfigured(c)
		return
	}

	if h.config.MaxUploadBytes > 0 {
		// Leave room for the multipart envelope; the file size is checked below.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes+1<<20)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondTooLarge(c, h.config.MaxUploadBytes)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "multipart field 'file' is required"})
		return
	}

	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "only PDF files are accepted"})
		return
	}
	if h.config.MaxUploadBytes > 0 && file.Size > h.config.MaxUploadBytes {
		respondTooLarge(c, h.config.MaxUploadBytes)
		return
	}

	format, err := render.ParseFormat(c.PostForm("output_format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	data, err := readUpload(file)
	if err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("[HANDLER] Could not read upload")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read uploaded file"})
		return
	}

	sessionID := uuid.NewString()
	filename := filepath.Base(file.Filename)
	h.storeUpload(sessionID, filename, data)

	text, err := h.readText(data)
	if err != nil {
		respondError(c, sessionID, err)
		return
	}

	result, err := h.extractor.Extract(c.Request.Context(), domain.ExtractionRequest{
		SessionID: sessionID,
		Filename:  filename,
		Text:      text,
	})
	if err != nil {
		respondError(c, sessionID, err)
		return
	}

	files, err := h.sheets.Write(sessionID, result.Record, format)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("[HANDLER] Could not write product sheet")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "session_id": sessionID, "error": "could not generate product sheet"})
		return
	}

	outputs := make([]OutputFile, 0, len(files))
	for _, f := range files {
		outputs = append(outputs, OutputFile{Name: f, URL: fmt.Sprintf("/api/v1/download/%s/%s", sessionID, f)})
	}

	c.JSON(http.StatusOK, newExtractResponse(sessionID, result, outputs))
}

// ExtractText runs the pipeline on text supplied directly in the request
func (h *Handler) ExtractText(c *gin.Context) {
	if h.extractor == nil {
		respondNotConfigured(c)
		return
	}

	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: text is required"})
		return
	}

	sessionID := uuid.NewString()
	result, err := h.extractor.Extract(c.Request.Context(), domain.ExtractionRequest{
		SessionID: sessionID,
		Filename:  req.Filename,
		Text:      req.Text,
	})
	if err != nil {
		respondError(c, sessionID, err)
		return
	}

	c.JSON(http.StatusOK, newExtractResponse(sessionID, result, nil))
}

// Download serves a generated file of a session
func (h *Handler) Download(c *gin.Context) {
	sessionID := c.Param("session")
	name := c.Param("file")

	if _, err := uuid.Parse(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid session id"})
		return
	}
	if !isDownloadable(name) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "file not found"})
		return
	}

	path := filepath.Join(h.sheets.SessionDir(sessionID), name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "file not found"})
		return
	}

	c.FileAttachment(path, name)
}

func isDownloadable(name string) bool {
	switch name {
	case render.HTMLFile, render.PDFFile, render.JSONFile:
		return true
	}
	return false
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// storeUpload keeps a copy of the original document. Failures are logged only.
func (h *Handler) storeUpload(sessionID, filename string, data []byte) {
	if h.config.UploadDir == "" {
		return
	}
	if err := os.MkdirAll(h.config.UploadDir, 0o755); err != nil {
		log.Warn().Err(err).Msg("[HANDLER] Could not create upload directory")
		return
	}
	path := filepath.Join(h.config.UploadDir, sessionID+"_"+filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("[HANDLER] Could not store upload")
		return
	}
	log.Info().Str("session_id", sessionID).Str("path", path).Int("bytes", len(data)).Msg("[HANDLER] Upload stored")
}

func newExtractResponse(sessionID string, result *domain.ExtractionResult, outputs []OutputFile) ExtractResponse {
	name := result.Record.ProductName
	if name == "" {
		name = "Produit"
	}
	return ExtractResponse{
		Success:     true,
		SessionID:   sessionID,
		ProductName: name,
		Product:     result.Record,
		Segments:    result.Segments,
		Cached:      result.Cached,
		Outputs:     outputs,
	}
}

// errorStatus maps pipeline errors to HTTP status codes and client messages
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "model service unavailable, verify the model service is running"
	case errors.Is(err, domain.ErrAnalysisTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "model analysis timed out"
	case errors.Is(err, domain.ErrInvalidDocument):
		return http.StatusBadRequest, "invalid PDF document"
	case errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusBadRequest, "document contains no extractable text"
	default:
		return http.StatusInternalServerError, "extraction failed"
	}
}

func respondError(c *gin.Context, sessionID string, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("session_id", sessionID).Int("status", status).Msg("[HANDLER] Extraction failed")
	} else {
		log.Warn().Err(err).Str("session_id", sessionID).Int("status", status).Msg("[HANDLER] Extraction rejected")
	}
	c.JSON(status, gin.H{"success": false, "session_id": sessionID, "error": message})
}

func respondNotConfigured(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "extraction service not configured"})
}

func respondTooLarge(c *gin.Context, limit int64) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": fmt.Sprintf("file exceeds the %d byte limit", limit)})
}
