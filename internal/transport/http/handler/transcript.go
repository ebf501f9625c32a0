package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"teamkb/internal/app"
	"teamkb/internal/transport/http/middleware"
	"teamkb/internal/transport/http/response"
)

type TranscriptHandler struct {
	transcriptService *app.TranscriptService
}

func NewTranscriptHandler(transcriptService *app.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcriptService: transcriptService}
}

type SaveTranscriptRequest struct {
	ProjectID         uint   `json:"project_id" binding:"required"`
	Title             string `json:"title" binding:"required,max=255"`
	Text              string `json:"text" binding:"required"`
	SourceReferenceID string `json:"source_reference_id"`
}

func (h *TranscriptHandler) Save(c *gin.Context) {
	var req SaveTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	doc, err := h.transcriptService.SaveTranscript(c.Request.Context(), app.SaveTranscriptInput{
		TeamID:            middleware.TeamID(c),
		ProjectID:         req.ProjectID,
		Title:             req.Title,
		Text:              req.Text,
		SourceReferenceID: req.SourceReferenceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAutoSaveDisabled):
			response.Error(c, http.StatusConflict, response.CodeAutoSaveOff, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "save transcript failed")
		}
		return
	}
	response.OK(c, doc)
}
