package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"voice-recorder/dto"
	"voice-recorder/entities"
	"voice-recorder/pkg/storage"
	"voice-recorder/service"
)

const snapshotTimeout = 5 * time.Second

type RecordingHandler struct {
	manager service.RecordingManager
}

func NewRecordingHandler(manager service.RecordingManager) *RecordingHandler {
	return &RecordingHandler{manager: manager}
}

func (h *RecordingHandler) Register(r gin.IRouter) {
	r.GET("/recordings", h.ListRecordings)
	r.POST("/recordings/start", h.StartRecording)
	r.POST("/recordings/stop", h.StopRecording)
	r.GET("/playback", h.GetPlayback)
	r.POST("/playback", h.StartPlaying)
	r.DELETE("/playback", h.StopPlaying)
	r.GET("/playback/events", h.PlaybackEvents)
}

// ListRecordings answers with the first snapshot of the live recordings list.
func (h *RecordingHandler) ListRecordings(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	sub := h.manager.Recordings(ctx)
	defer sub.Close()

	select {
	case recordings := <-sub.C():
		if recordings == nil {
			recordings = []entities.Recording{}
		}
		c.JSON(http.StatusOK, dto.RecordingsResponse{Recordings: recordings})
	case <-ctx.Done():
		zerolog.Ctx(ctx).Error().Err(ctx.Err()).Msg("timed out waiting for recordings")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "recordings not available"})
	}
}

func (h *RecordingHandler) StartRecording(c *gin.Context) {
	if err := h.manager.StartRecording(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "recording"})
}

func (h *RecordingHandler) StopRecording(c *gin.Context) {
	recording, err := h.manager.StopRecording(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recording)
}

func (h *RecordingHandler) GetPlayback(c *gin.Context) {
	c.JSON(http.StatusOK, playbackState(h.manager.CurrentlyPlaying().Get()))
}

func (h *RecordingHandler) StartPlaying(c *gin.Context) {
	var req dto.PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recording := entities.Recording{Location: req.Location, DurationSeconds: req.DurationSeconds}
	if err := h.manager.StartPlaying(c.Request.Context(), recording); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, playbackState(h.manager.CurrentlyPlaying().Get()))
}

func (h *RecordingHandler) StopPlaying(c *gin.Context) {
	if err := h.manager.StopPlaying(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PlaybackEvents streams the currently playing recording as server-sent events
// until the client goes away.
func (h *RecordingHandler) PlaybackEvents(c *gin.Context) {
	sub := h.manager.CurrentlyPlaying().Subscribe()
	defer sub.Close()

	ctx := c.Request.Context()
	send := func(recording *entities.Recording, ok bool) bool {
		if !ok {
			return false
		}
		c.SSEvent("playback", playbackState(recording))
		return true
	}

	c.Stream(func(w io.Writer) bool {
		// pending updates go out before a disconnect is noticed
		select {
		case recording, ok := <-sub.C():
			return send(recording, ok)
		default:
		}
		select {
		case recording, ok := <-sub.C():
			return send(recording, ok)
		case <-ctx.Done():
			return false
		}
	})
}

func playbackState(recording *entities.Recording) dto.PlaybackState {
	return dto.PlaybackState{
		Playing:   recording != nil,
		Recording: recording,
	}
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrCaptureActive),
		errors.Is(err, service.ErrNoActiveCapture),
		errors.Is(err, service.ErrNotPlaying):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidRecording):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrDestination):
		status = http.StatusInsufficientStorage
	}
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Int("status", status).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
