package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"medassist/internal/app"
	"medassist/internal/pkg/pdfextract"
	"medassist/internal/transport/http/response"
)

const maxUploadBytes = 20 << 20

type DocumentHandler struct {
	ingestService *app.IngestService
}

type IngestDocumentRequest struct {
	Title    string `json:"title" binding:"required,max=256"`
	Category string `json:"category" binding:"max=64"`
	Content  string `json:"content" binding:"required"`
}

func NewDocumentHandler(ingestService *app.IngestService) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService}
}

func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), app.IngestInput{
		Title:    req.Title,
		Category: req.Category,
		Content:  req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest document failed")
		}
		return
	}

	response.OK(c, result)
}

// Upload ingests a file from a multipart form. PDF content is extracted to
// plain text; markdown and text files are taken as-is.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file field")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded file failed")
		return
	}
	defer file.Close()

	var content string
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".pdf":
		content, err = pdfextract.ExtractText(file)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "extract pdf text failed")
			return
		}
	case ".md", ".txt":
		raw, readErr := io.ReadAll(file)
		if readErr != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
			return
		}
		content = string(raw)
	default:
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "unsupported file type")
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		base := filepath.Base(fileHeader.Filename)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), app.IngestInput{
		Title:    title,
		Category: c.PostForm("category"),
		Content:  content,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest document failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	documents, err := h.ingestService.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, documents)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	title := strings.TrimSpace(c.Param("title"))
	if err := h.ingestService.Remove(c.Request.Context(), title); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_title": title})
}

func (h *DocumentHandler) Reindex(c *gin.Context) {
	report, err := h.ingestService.Reindex(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reindex failed")
		return
	}
	response.OK(c, report)
}

func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.ingestService.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "knowledge stats failed")
		return
	}
	response.OK(c, stats)
}
