package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"teamkb/internal/app"
	"teamkb/internal/ingest"
	"teamkb/internal/transport/http/middleware"
	"teamkb/internal/transport/http/response"
)

type SearchHandler struct {
	searchService *app.SearchService
	reprocessor   *ingest.Reprocessor
}

func NewSearchHandler(searchService *app.SearchService, reprocessor *ingest.Reprocessor) *SearchHandler {
	return &SearchHandler{searchService: searchService, reprocessor: reprocessor}
}

type SearchRequest struct {
	Query     string   `json:"query" binding:"required"`
	Mode      string   `json:"mode"`
	FolderID  *uint    `json:"folder_id"`
	FileTypes []string `json:"file_types"`
	Tags      []string `json:"tags"`
	Limit     int      `json:"limit"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.searchService.Search(c.Request.Context(), app.SearchInput{
		TeamID:    middleware.TeamID(c),
		Query:     req.Query,
		Mode:      req.Mode,
		FolderID:  req.FolderID,
		FileTypes: req.FileTypes,
		Tags:      req.Tags,
		Limit:     req.Limit,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyQuery):
			response.Error(c, http.StatusBadRequest, response.CodeEmptyQuery, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}
	response.OK(c, result)
}

// Reprocess runs the batch indexer over every unindexed document in the team.
// Synchronous on purpose: the caller gets the per-document outcome back.
func (h *SearchHandler) Reprocess(c *gin.Context) {
	summary, err := h.reprocessor.ReprocessAll(c.Request.Context(), middleware.TeamID(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reprocess failed")
		return
	}
	response.OK(c, summary)
}
