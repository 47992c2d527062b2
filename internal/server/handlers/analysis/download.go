package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"leakscan/internal/business"
	"leakscan/pkg/ginx"
	"leakscan/pkg/sessionstore"
)

// Download 下载分析产物 CSV
// GET /api/v1/download/:type/:session_id
// type ∈ {all_predictions, no_leakage, anomalies}
func (h *AnalysisHandler) Download(c *gin.Context) {
	fileType := c.Param("type")
	sessionID := c.Param("session_id")

	switch fileType {
	case business.OutputAllPredictions, business.OutputNoLeakage, business.OutputAnomalies:
	default:
		ginx.BadRequest(c, fmt.Sprintf("unknown file type: %s", fileType))
		return
	}

	record, err := h.store.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			ginx.NotFound(c, "session not found")
			return
		}
		h.logger.Errorf(c.Request.Context(), "[Download] store get failed: %v", err)
		ginx.InternalError(c, "failed to load session")
		return
	}

	if record.Status != sessionstore.StatusAnalyzed {
		ginx.BadRequest(c, fmt.Sprintf("session is %s, no files available", record.Status))
		return
	}

	path, ok := record.SavedFiles[fileType]
	if !ok {
		ginx.NotFound(c, "file not found for session")
		return
	}

	if _, err := os.Stat(path); err != nil {
		h.logger.Errorf(c.Request.Context(), "[Download] output file missing: %s", path)
		ginx.NotFound(c, "output file no longer exists")
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}
