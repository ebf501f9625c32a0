package handler

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"teamkb/internal/storage"
	"teamkb/internal/transport/http/response"
)

// BlobHandler serves signed download links minted by the URL signer. The
// route sits outside the team middleware: the signature is the authorization.
type BlobHandler struct {
	store  storage.ObjectStore
	signer *storage.URLSigner
}

func NewBlobHandler(store storage.ObjectStore, signer *storage.URLSigner) *BlobHandler {
	return &BlobHandler{store: store, signer: signer}
}

func (h *BlobHandler) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing blob key")
		return
	}
	exp, err := strconv.ParseInt(c.Query("exp"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid exp parameter")
		return
	}
	sig := c.Query("sig")
	if sig == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing sig parameter")
		return
	}

	if err := h.signer.Verify(key, exp, sig); err != nil {
		switch {
		case errors.Is(err, storage.ErrSignatureExpired):
			response.Error(c, http.StatusForbidden, response.CodeLinkExpired, "download link expired")
		default:
			response.Error(c, http.StatusForbidden, response.CodeLinkExpired, "invalid download link")
		}
		return
	}

	data, err := h.store.Download(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "blob not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "download failed")
		return
	}

	filename := path.Base(key)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/octet-stream", data)
}
