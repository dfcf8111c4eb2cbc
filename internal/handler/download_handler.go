package handler

import (
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
	"github.com/noah-isme/santri-dokumen-api/pkg/response"
	"github.com/noah-isme/santri-dokumen-api/pkg/storage"
)

type tokenParser interface {
	Parse(token string, allowExpired bool) (scope, relPath string, expiresAt time.Time, err error)
}

type localFiles interface {
	Path(ref string) (string, error)
}

// DownloadHandler redeems signed links issued by local storage.
type DownloadHandler struct {
	signer tokenParser
	files  localFiles
}

// NewDownloadHandler constructs the handler.
func NewDownloadHandler(signer tokenParser, files localFiles) *DownloadHandler {
	return &DownloadHandler{signer: signer, files: files}
}

// Download godoc
// @Summary Download a stored document or report by signed token
// @Tags Files
// @Produce application/octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /files/download [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	if h.signer == nil || h.files == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "local downloads are disabled"))
		return
	}
	scope, ref, _, err := h.signer.Parse(c.Query("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token"))
		return
	}
	if scope != storage.ScopeDownload && scope != storage.ScopeReport {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token scope not accepted"))
		return
	}
	path, err := h.files.Path(ref)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.FileAttachment(path, filepath.Base(ref))
}
