package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Heimeroux/pyannote-api-toolkit/errors"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/server"
	"github.com/Heimeroux/pyannote-api-toolkit/service"
	"github.com/Heimeroux/pyannote-api-toolkit/validation"
)

// Upload handles POST /files/upload. The audio file, its user-facing name,
// and the expected speaker count arrive as a multipart form; the file
// identifier and storage backend are assigned server-side.
func (h *Handler) Upload(c *gin.Context) {
	filename := c.PostForm("filename")
	nbSpeakers, err := strconv.Atoi(c.DefaultPostForm("nb_speakers", "0"))
	if err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("nb_speakers", "must be an integer"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		server.RespondWithError(c, apperrors.MissingField("file"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		server.RespondWithError(c, apperrors.Internal(err))
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if ct := c.PostForm("content_type"); ct != "" {
		contentType = ct
	}

	rec, err := h.manager.Upload(c.Request.Context(), service.UploadRequest{
		Filename:     filename,
		ContentType:  contentType,
		SpeakerCount: nbSpeakers,
		Body:         file,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondCreated(c, rec)
}

type filenameBody struct {
	Filename string `json:"filename" validate:"required"`
}

// Delete handles POST /delete. Removing the record releases the audio
// bytes and frees the filename for reuse.
func (h *Handler) Delete(c *gin.Context) {
	var body filenameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		server.RespondWithError(c, apperrors.Validation("malformed request body").WithCause(err))
		return
	}
	if err := validation.Validate(&body); err != nil {
		server.RespondWithError(c, err)
		return
	}

	if err := h.manager.Delete(c.Request.Context(), body.Filename); err != nil {
		server.RespondWithError(c, err)
		return
	}

	h.log.Info("File deleted", map[string]interface{}{logger.FieldFilename: body.Filename})
	server.RespondOK(c, gin.H{"filename": body.Filename})
}

// Filenames handles GET /filenames.
func (h *Handler) Filenames(c *gin.Context) {
	names, err := h.manager.Filenames(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"filenames": names})
}

// Count handles GET /documents/count.
func (h *Handler) Count(c *gin.Context) {
	n, err := h.manager.Count(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"count": n})
}

// AudioBytes handles GET /audio/bytes. The stored audio streams back with
// the content type declared at upload.
func (h *Handler) AudioBytes(c *gin.Context) {
	filename := c.Query("filename")
	if filename == "" {
		server.RespondWithError(c, apperrors.MissingField("filename"))
		return
	}

	blob, err := h.manager.AudioBytes(c.Request.Context(), filename)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	defer blob.Body.Close()

	c.DataFromReader(200, blob.Size, blob.ContentType, blob.Body, nil)
}
