package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"teamkb/internal/app"
	"teamkb/internal/transport/http/middleware"
	"teamkb/internal/transport/http/response"
)

const maxUploadSize = 50 << 20 // 50 MB

type DocumentHandler struct {
	docService     *app.DocumentService
	versionService *app.VersionService
}

func NewDocumentHandler(docService *app.DocumentService, versionService *app.VersionService) *DocumentHandler {
	return &DocumentHandler{docService: docService, versionService: versionService}
}

// Upload accepts a multipart form: "file" plus "folder_id", optional "title",
// "description", "tags" (comma separated) and "uploaded_by".
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 50MB)")
		return
	}
	folderID := parseUintForm(c, "folder_id")
	if folderID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing folder_id")
		return
	}

	data, err := readMultipartFile(file)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	doc, err := h.docService.Upload(c.Request.Context(), app.UploadInput{
		TeamID:      middleware.TeamID(c),
		FolderID:    folderID,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Tags:        splitTags(c.PostForm("tags")),
		Filename:    file.Filename,
		MimeType:    file.Header.Get("Content-Type"),
		Data:        data,
		UploadedBy:  parseUintForm(c, "uploaded_by"),
	})
	if err != nil {
		writeDocumentError(c, err, "upload failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	var folderID *uint
	if raw := c.Query("folder_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid folder_id")
			return
		}
		id := uint(parsed)
		folderID = &id
	}
	docs, err := h.docService.List(middleware.TeamID(c), folderID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	doc, err := h.docService.Get(middleware.TeamID(c), docID)
	if err != nil {
		writeDocumentError(c, err, "get document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Archive(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	if err := h.docService.Archive(middleware.TeamID(c), docID); err != nil {
		writeDocumentError(c, err, "archive document failed")
		return
	}
	response.OK(c, gin.H{"archived_document_id": docID})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	url, err := h.docService.DownloadURL(middleware.TeamID(c), docID)
	if err != nil {
		writeDocumentError(c, err, "sign download url failed")
		return
	}
	response.OK(c, gin.H{"url": url})
}

// UploadVersion accepts a multipart form: "file" plus optional "change_note".
func (h *DocumentHandler) UploadVersion(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 50MB)")
		return
	}
	data, err := readMultipartFile(file)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	result, err := h.versionService.UploadNewVersion(c.Request.Context(), app.UploadVersionInput{
		TeamID:     middleware.TeamID(c),
		DocumentID: docID,
		Filename:   file.Filename,
		MimeType:   file.Header.Get("Content-Type"),
		Data:       data,
		ChangeNote: c.PostForm("change_note"),
	})
	if err != nil {
		writeDocumentError(c, err, "upload version failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) ListVersions(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	versions, err := h.versionService.ListVersions(middleware.TeamID(c), docID)
	if err != nil {
		writeDocumentError(c, err, "list versions failed")
		return
	}
	response.OK(c, versions)
}

func (h *DocumentHandler) AddFavorite(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing X-User-ID header")
		return
	}
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	if err := h.docService.AddFavorite(middleware.TeamID(c), userID, docID); err != nil {
		writeDocumentError(c, err, "add favorite failed")
		return
	}
	response.OK(c, gin.H{"favorited_document_id": docID})
}

func (h *DocumentHandler) RemoveFavorite(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing X-User-ID header")
		return
	}
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	if err := h.docService.RemoveFavorite(middleware.TeamID(c), userID, docID); err != nil {
		writeDocumentError(c, err, "remove favorite failed")
		return
	}
	response.OK(c, gin.H{"unfavorited_document_id": docID})
}

func (h *DocumentHandler) ListFavorites(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing X-User-ID header")
		return
	}
	docs, err := h.docService.ListFavorites(middleware.TeamID(c), userID)
	if err != nil {
		writeDocumentError(c, err, "list favorites failed")
		return
	}
	response.OK(c, docs)
}

func writeDocumentError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	s := c.Param(key)
	u, err := strconv.ParseUint(s, 10, 64)
	return uint(u), err
}

func parseUintForm(c *gin.Context, key string) uint {
	s := c.PostForm(key)
	if s == "" {
		return 0
	}
	u, _ := strconv.ParseUint(s, 10, 64)
	return uint(u)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func readMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
