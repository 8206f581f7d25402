package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tesloshop/backend/internal/http/response"
	"github.com/tesloshop/backend/internal/service"
)

type FilesHandler struct {
	storage  service.StorageService
	maxBytes int64
}

func NewFilesHandler(storage service.StorageService, maxBytes int64) *FilesHandler {
	return &FilesHandler{storage: storage, maxBytes: maxBytes}
}

// UploadProductImage accepts a multipart form with a single "file" part.
func (h *FilesHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+4096)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "expected a multipart form with a file field", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "file field is required", nil)
		return
	}
	defer file.Close()

	uploaded, err := h.storage.UploadProductImage(r.Context(), file, header.Size)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}

	url, err := h.storage.ProductImageURL(r.Context(), uploaded.ObjectKey)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusCreated, map[string]any{
		"object_key":   uploaded.ObjectKey,
		"content_type": uploaded.ContentType,
		"size":         uploaded.Size,
		"url":          url,
	})
}

// GetProductImage redirects to a short-lived presigned URL for the image.
func (h *FilesHandler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	imageName := chi.URLParam(r, "imageName")
	url, err := h.storage.ProductImageURL(r.Context(), service.ProductImageObjectKey(imageName))
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrFileTooBig):
		response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidFileType):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, service.ErrObjectNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "storage operation failed", nil)
	}
}
