package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mirelio/echodesk/internal/repositories/postgres"
	"github.com/mirelio/echodesk/internal/storage"
	"github.com/mirelio/echodesk/internal/utils"
)

type AudioHandler struct {
	repo  postgres.FeedbackRepository
	store storage.Store
}

func NewAudioHandler(repo postgres.FeedbackRepository, store storage.Store) *AudioHandler {
	return &AudioHandler{repo: repo, store: store}
}

// Stream serves the synthesized audio for one artifact. With ?download=true
// the response carries an attachment disposition.
func (h *AudioHandler) Stream(c *gin.Context) {
	const op = "AudioHandler.Stream"

	if h.store == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "audio storage is not configured", nil))
		return
	}

	art, err := h.repo.GetAudio(c.Request.Context(), c.Param("audio_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	r, err := h.store.Open(c.Request.Context(), art.Locator)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to open audio artifact", err))
		return
	}
	defer r.Close()

	c.Header("Content-Type", "audio/mpeg")
	if art.FileSize > 0 {
		c.Header("Content-Length", strconv.FormatInt(art.FileSize, 10))
	}
	if c.Query("download") == "true" {
		c.Header("Content-Disposition", `attachment; filename="feedback_`+art.FeedbackID+`_response.mp3"`)
	}

	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, r)
}
