package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"convertly/internal/config"
	"convertly/internal/convert"
	"convertly/internal/model"
	"convertly/internal/repository"
	"convertly/internal/storage"
	"convertly/internal/utils"

	"github.com/gin-gonic/gin"
)

// Converter runs one conversion and reports which strategy produced the
// output. Satisfied by convert.Dispatcher.
type Converter interface {
	Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (convert.Result, error)
}

// Archiver copies finished conversions to long-term storage. Optional.
type Archiver interface {
	Archive(ctx context.Context, conversionID, inputPath, outputPath, contentType string) error
}

type Handler struct {
	cfg        *config.Config
	repo       repository.ConversionRepository
	dispatcher Converter
	archiver   Archiver
}

func NewHandler(cfg *config.Config, repo repository.ConversionRepository, dispatcher Converter, archiver Archiver) *Handler {
	return &Handler{
		cfg:        cfg,
		repo:       repo,
		dispatcher: dispatcher,
		archiver:   archiver,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.healthCheck)
	r.POST("/convert", h.convertFile)
	r.GET("/conversions", h.listConversions)
	r.GET("/conversions/:id", h.getConversion)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "convertly",
	})
}

// convertFile handles POST /convert: multipart upload with one or more
// file parts and a JSON "settings" part. Only the first file is converted;
// the rest are accepted and ignored, a documented limitation.
func (h *Handler) convertFile(c *gin.Context) {
	// Bound the whole request body so the multipart parser cannot spool
	// more to disk than the per-file and per-request ceilings allow.
	bodyLimit := h.cfg.MaxFileSize*int64(h.cfg.MaxFileCount) + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)

	form, err := c.MultipartForm()
	if err != nil {
		log.Printf("[Convert] Failed to parse multipart form: %v", err)
		utils.Error(c, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		utils.Error(c, http.StatusBadRequest, "No files provided")
		return
	}
	if len(files) > h.cfg.MaxFileCount {
		utils.Error(c, http.StatusBadRequest,
			fmt.Sprintf("too many files: limit is %d per request", h.cfg.MaxFileCount))
		return
	}

	for _, f := range files {
		if f.Size > h.cfg.MaxFileSize {
			utils.Error(c, http.StatusBadRequest,
				fmt.Sprintf("file size exceeds %dMB limit", h.cfg.MaxFileSize>>20))
			return
		}
	}

	file := files[0]

	settings, err := model.ParseSettings([]byte(c.PostForm("settings")))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid conversion settings: "+err.Error())
		return
	}

	originalFormat := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	if !convert.IsAllowedUpload(originalFormat) {
		utils.Error(c, http.StatusBadRequest, "unsupported file type: "+file.Filename)
		return
	}

	inputPath, err := storage.SaveUpload(h.cfg.UploadDir, file)
	if err != nil {
		log.Printf("[Convert] Failed to store upload: %v", err)
		utils.Error(c, http.StatusInternalServerError, "Conversion failed")
		return
	}
	defer storage.Cleanup(inputPath)

	conv, err := h.repo.Create(c.Request.Context(), file.Filename, originalFormat, settings.OutputFormat, settings)
	if err != nil {
		log.Printf("[Convert] Failed to create record: %v", err)
		utils.Error(c, http.StatusInternalServerError, "Conversion failed")
		return
	}
	log.Printf("[Convert] %s: %s -> %s (%d bytes)", conv.ID, originalFormat, settings.OutputFormat, file.Size)

	if _, err := h.repo.Update(c.Request.Context(), conv.ID, repository.ConversionUpdate{Status: model.StatusProcessing}); err != nil {
		log.Printf("[Convert] %s: failed to mark processing: %v", conv.ID, err)
		h.markFailed(conv.ID)
		utils.Error(c, http.StatusInternalServerError, "Conversion failed")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ConversionTimeout)
	defer cancel()

	result, err := h.dispatcher.Convert(ctx, inputPath, settings)
	if err != nil {
		log.Printf("[Convert] %s: dispatch failed: %v", conv.ID, err)
		h.markFailed(conv.ID)
		utils.Error(c, http.StatusInternalServerError, "Conversion failed")
		return
	}
	defer storage.Cleanup(result.OutputPath)

	// Read the output before marking the record completed so a vanished
	// or unreadable file never yields a completed record with no body.
	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		log.Printf("[Convert] %s: failed to read output: %v", conv.ID, err)
		h.markFailed(conv.ID)
		utils.Error(c, http.StatusInternalServerError, "Conversion failed")
		return
	}

	now := time.Now()
	if _, err := h.repo.Update(c.Request.Context(), conv.ID, repository.ConversionUpdate{
		Status:      model.StatusCompleted,
		CompletedAt: &now,
	}); err != nil {
		log.Printf("[Convert] %s: failed to mark completed: %v", conv.ID, err)
		h.markFailed(conv.ID)
		utils.Error(c, http.StatusInternalServerError, "Conversion failed")
		return
	}

	contentType := convert.ContentType(settings.OutputFormat)

	if h.archiver != nil {
		if err := h.archiver.Archive(c.Request.Context(), conv.ID, inputPath, result.OutputPath, contentType); err != nil {
			log.Printf("[Convert] %s: archive failed: %v", conv.ID, err)
		}
	}

	log.Printf("[Convert] %s: completed via %s strategy (fallback=%t)", conv.ID, result.Strategy, result.Fallback)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "converted."+settings.OutputFormat))
	c.Header("X-Conversion-Id", conv.ID)
	if result.Fallback {
		c.Header("X-Conversion-Fallback", "true")
	}
	c.Data(http.StatusOK, contentType, data)
}

// getConversion handles GET /conversions/:id.
func (h *Handler) getConversion(c *gin.Context) {
	conv, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		utils.Error(c, http.StatusNotFound, "Conversion not found")
		return
	}
	if err != nil {
		log.Printf("[Convert] Failed to get conversion: %v", err)
		utils.Error(c, http.StatusInternalServerError, "Failed to get conversion status")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// listConversions handles GET /conversions.
func (h *Handler) listConversions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	conversions, err := h.repo.List(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[Convert] Failed to list conversions: %v", err)
		utils.Error(c, http.StatusInternalServerError, "Failed to list conversions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": conversions,
		"count": len(conversions),
	})
}

// markFailed records a terminal failed status. It runs on a detached
// context so the write survives a client disconnect mid-request.
func (h *Handler) markFailed(id string) {
	if _, err := h.repo.Update(context.Background(), id, repository.ConversionUpdate{Status: model.StatusFailed}); err != nil {
		log.Printf("[Convert] %s: failed to mark failed: %v", id, err)
	}
}
