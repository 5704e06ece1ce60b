package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/files"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

// UploadHandlers provides HTTP handlers for file uploads.
type UploadHandlers struct {
	files *files.Storage
	store store.Store
	log   *zerolog.Logger
}

// NewUploadHandlers creates a new upload handlers instance.
func NewUploadHandlers(storage *files.Storage, st store.Store, logger *zerolog.Logger) *UploadHandlers {
	return &UploadHandlers{
		files: storage,
		store: st,
		log:   logger,
	}
}

// UploadResponse represents the upload response body.
type UploadResponse struct {
	URL string `json:"url"`
}

// Upload stores a multipart file and returns its public URL. The URL is
// later carried opaquely as a message attachment.
// POST /api/upload
func (h *UploadHandlers) Upload(c *gin.Context) {
	url, ok := h.saveUploaded(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, UploadResponse{URL: url})
}

// UploadProfileImage stores a multipart file and sets it as the caller's
// profile image.
// POST /api/profile-image
func (h *UploadHandlers) UploadProfileImage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	url, ok := h.saveUploaded(c)
	if !ok {
		return
	}

	if err := h.store.UpdateProfileImage(c.Request.Context(), uid, url); err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to update profile image")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, UploadResponse{URL: url})
}

func (h *UploadHandlers) saveUploaded(c *gin.Context) (string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no file uploaded"})
		return "", false
	}
	if header.Size > files.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
		return "", false
	}

	f, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return "", false
	}
	defer f.Close()

	url, err := h.files.Save(header.Filename, f)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to store uploaded file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return "", false
	}

	return url, true
}
