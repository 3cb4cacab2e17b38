package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quizdrop/quizdrop-backend/internal/config"
	"github.com/quizdrop/quizdrop-backend/internal/response"
	"github.com/quizdrop/quizdrop-backend/internal/service"
)

// ArchiveHandler handles the backup and restore endpoints.
type ArchiveHandler struct {
	archiveService *service.ArchiveService
	cfg            *config.Config
	log            zerolog.Logger
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(archiveService *service.ArchiveService, cfg *config.Config, log zerolog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiveService: archiveService,
		cfg:            cfg,
		log:            log.With().Str("component", "archive_handler").Logger(),
	}
}

// Backup godoc
// GET /api/backup
// Streams a ZIP snapshot of the whole store as an attachment. The
// content type lets clients tell an archive from an error envelope.
func (h *ArchiveHandler) Backup(c *gin.Context) {
	filename := fmt.Sprintf("backup-%d.zip", time.Now().UnixMilli())
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.archiveService.WriteBackup(c.Writer); err != nil {
		h.log.Error().Err(err).Msg("Backup failed")
		if !c.Writer.Written() {
			c.Header("Content-Type", "application/json")
			c.Header("Content-Disposition", "")
			response.Fail(c, http.StatusInternalServerError, response.ErrBackupFailed)
			return
		}
		// Headers are already on the wire; abort so the client sees a
		// truncated body instead of a well-formed but partial archive.
		c.Abort()
	}
}

// Restore godoc
// POST /api/restore
// Extracts an uploaded backup ZIP over the storage root. Gated by the
// server-side restore secret, not by any quiz password.
func (h *ArchiveHandler) Restore(c *gin.Context) {
	suppliedSecret := c.PostForm("password")

	file, header, err := c.Request.FormFile("backup")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".zip" {
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return
	}
	if header.Size > h.cfg.MaxRestoreBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		return
	}

	stagedPath, err := h.archiveService.StageArchive(file)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	defer h.archiveService.DiscardArchive(stagedPath)

	if err := h.archiveService.Restore(stagedPath, suppliedSecret); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		case errors.Is(err, service.ErrInvalidArchive):
			h.log.Error().Err(err).Msg("Restore rejected")
			response.Fail(c, http.StatusInternalServerError, response.ErrInvalidArchive)
		default:
			h.log.Error().Err(err).Msg("Restore failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Restore completed successfully"})
}
