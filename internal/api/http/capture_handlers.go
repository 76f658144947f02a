package http

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/capture"
)

// ListCaptures returns the target's capture files, newest first.
func (h *Handlers) ListCaptures(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	files, err := capture.List(tgt.CaptureDir())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// DownloadCapture streams one capture file with a sniffed content type.
func (h *Handlers) DownloadCapture(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	name := c.Param("file")
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid capture file name"})
		return
	}
	path := filepath.Join(tgt.CaptureDir(), name)
	c.Header("Content-Type", capture.ContentType(path))
	c.File(path)
}

// ArchiveCaptures streams every capture of the target as a .tar.zst.
func (h *Handlers) ArchiveCaptures(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/zstd")
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", tgt.Name()+"-captures.tar.zst"))
	if err := capture.WriteArchive(tgt.CaptureDir(), c.Writer); err != nil {
		// Headers are gone; the truncated stream is the only signal left.
		h.log.Error("capture archive failed",
			zap.String("target", tgt.Name()),
			zap.Error(err),
		)
	}
}
