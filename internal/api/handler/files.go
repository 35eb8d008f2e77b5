package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/api/response"
	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/service"
)

const (
	maxFilesPerRequest = 10
	multipartMemory    = 32 << 20
)

// FileHandler handles upload endpoints
type FileHandler struct {
	chatService *service.ChatService
	maxFileSize int64
}

// NewFileHandler creates a new file handler
func NewFileHandler(chatService *service.ChatService, maxFileSize int64) *FileHandler {
	if maxFileSize <= 0 {
		maxFileSize = domain.MaxUploadSize
	}
	return &FileHandler{chatService: chatService, maxFileSize: maxFileSize}
}

// Upload stores the files of a multipart request under the "file" or "files"
// fields
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFilesPerRequest*h.maxFileSize+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		response.BadRequest(w, "no file uploaded")
		return
	}
	if len(headers) > maxFilesPerRequest {
		response.BadRequest(w, "too many files in one request")
		return
	}

	uploads := make([]service.FileUpload, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			log.Warn().Err(err).Str("file", header.Filename).Msg("Failed to open multipart file")
			response.BadRequest(w, "failed to read uploaded file")
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, service.FileUpload{Name: header.Filename, Size: header.Size, Reader: f})
	}

	result, err := h.chatService.UploadFiles(r.Context(), r.FormValue("sessionId"), uploads)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(result.Files) == 0 {
		response.BadRequest(w, map[string]any{
			"message":  "no files were accepted",
			"failures": result.Failures,
		})
		return
	}

	response.OK(w, result)
}

// List returns the session's files
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.chatService.ListFiles(r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"files": files,
		"count": len(files),
	})
}

// Clear deletes all of the session's files
func (h *FileHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.chatService.ClearFiles(r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"message": "Files cleared",
		"removed": removed,
	})
}

// Delete removes one file by name
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.chatService.DeleteFile(r.URL.Query().Get("sessionId"), name); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]string{"message": "File deleted"})
}
