package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"teamkb/internal/app"
	"teamkb/internal/transport/http/middleware"
	"teamkb/internal/transport/http/response"
)

type FolderHandler struct {
	folderService *app.FolderService
}

func NewFolderHandler(folderService *app.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

type CreateFolderRequest struct {
	Name           string `json:"name" binding:"required,max=128"`
	ParentFolderID *uint  `json:"parent_folder_id"`
	ProjectID      *uint  `json:"project_id"`
}

type MoveFolderRequest struct {
	ParentFolderID *uint `json:"parent_folder_id"`
}

func (h *FolderHandler) Create(c *gin.Context) {
	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	folder, err := h.folderService.CreateFolder(app.CreateFolderInput{
		TeamID:         middleware.TeamID(c),
		Name:           req.Name,
		ParentFolderID: req.ParentFolderID,
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		writeFolderError(c, err, "create folder failed")
		return
	}
	response.OK(c, folder)
}

func (h *FolderHandler) List(c *gin.Context) {
	folders, err := h.folderService.ListFolders(middleware.TeamID(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list folders failed")
		return
	}
	response.OK(c, folders)
}

func (h *FolderHandler) Move(c *gin.Context) {
	folderID, err := parseUintParam(c, "id")
	if err != nil || folderID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid folder id")
		return
	}
	var req MoveFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	folder, err := h.folderService.MoveFolder(middleware.TeamID(c), folderID, req.ParentFolderID)
	if err != nil {
		writeFolderError(c, err, "move folder failed")
		return
	}
	response.OK(c, folder)
}

func (h *FolderHandler) Delete(c *gin.Context) {
	folderID, err := parseUintParam(c, "id")
	if err != nil || folderID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid folder id")
		return
	}
	if err := h.folderService.DeleteFolder(c.Request.Context(), middleware.TeamID(c), folderID); err != nil {
		writeFolderError(c, err, "delete folder failed")
		return
	}
	response.OK(c, gin.H{"deleted_folder_id": folderID})
}

func writeFolderError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrFolderCycle), errors.Is(err, app.ErrFolderCrossKB):
		response.Error(c, http.StatusBadRequest, response.CodeFolderCycle, err.Error())
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
