package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/homebase/internal/upload"
)

type UploadHandler struct {
	uploader *upload.Uploader
	logger   *slog.Logger
}

func NewUploadHandler(u *upload.Uploader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploader: u, logger: logger}
}

func (h *UploadHandler) FamilyPhoto(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, upload.DirFamilyPhotos)
}

func (h *UploadHandler) ResponsibilityIcon(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, upload.DirResponsibilityIcons)
}

func (h *UploadHandler) StockIcons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, upload.StockIcons())
}

func (h *UploadHandler) save(w http.ResponseWriter, r *http.Request, dir string) {
	// Room for the multipart framing around a maximum-size file.
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxSize+maxBodyBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, upload.ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	url, err := h.uploader.Save(r.Context(), dir, header.Filename, file)
	switch {
	case errors.Is(err, upload.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		h.logger.Error("failed to store upload", "dir", dir, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
	}
}
