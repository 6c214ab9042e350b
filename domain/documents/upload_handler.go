package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/domain/folders"
	"github.com/corpora-dev/corpora/domain/settings"
	"github.com/corpora-dev/corpora/internal/storage"
	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/parser"
)

const (
	// MaxBatchFiles is the maximum number of files in a batch upload
	MaxBatchFiles = 100
	// BatchConcurrency is the number of concurrent file uploads in a batch
	BatchConcurrency = 3
)

// UploadHandler handles document upload HTTP requests
type UploadHandler struct {
	svc      *Service
	store    storage.Store
	settings *settings.Service
	parsers  *parser.Registry
	log      *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(svc *Service, store storage.Store, settingsSvc *settings.Service, parsers *parser.Registry, log *slog.Logger) *UploadHandler {
	return &UploadHandler{
		svc:      svc,
		store:    store,
		settings: settingsSvc,
		parsers:  parsers,
		log:      log.With(logger.Scope("upload")),
	}
}

// Upload handles POST /api/containers/:containerId/documents (multipart file upload)
func (h *UploadHandler) Upload(c echo.Context) error {
	containerID := c.Param("containerId")

	file, err := c.FormFile("file")
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("file is required")
	}

	snap := h.settings.Snapshot()
	opts := uploadOptions{
		containerID: containerID,
		path:        c.FormValue("path"),
		strategy:    c.FormValue("strategy"),
		snapshot:    snap,
	}

	response, err := h.processFileUpload(c.Request().Context(), file, opts)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if response.JobID != "" {
		status = http.StatusAccepted
	}
	return c.JSON(status, response)
}

// UploadBatch handles POST /api/containers/:containerId/documents/batch.
// Max 100 files per batch. Files are processed concurrently.
func (h *UploadHandler) UploadBatch(c echo.Context) error {
	containerID := c.Param("containerId")

	form, err := c.MultipartForm()
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid multipart form")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return apperror.ErrBadRequest.WithMessage("at least one file is required")
	}
	if len(files) > MaxBatchFiles {
		return apperror.ErrBadRequest.WithMessage(fmt.Sprintf("maximum %d files allowed per batch", MaxBatchFiles))
	}

	snap := h.settings.Snapshot()
	opts := uploadOptions{
		containerID: containerID,
		strategy:    c.FormValue("strategy"),
		snapshot:    snap,
	}
	if values := form.Value["path"]; len(values) > 0 {
		opts.path = values[0]
	}

	ctx := c.Request().Context()

	// Process files concurrently with limited concurrency
	results := make([]BatchUploadFileResult, len(files))
	var wg sync.WaitGroup
	sem := make(chan struct{}, BatchConcurrency)

	for i, file := range files {
		wg.Add(1)
		go func(idx int, fh *multipart.FileHeader) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = h.processBatchFile(ctx, fh, opts)
		}(i, file)
	}

	wg.Wait()

	summary := BatchUploadSummary{Total: len(files)}
	for _, result := range results {
		if result.Status == "success" {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	return c.JSON(http.StatusOK, BatchUploadResult{
		Summary: summary,
		Results: results,
	})
}

// uploadOptions carries the per-request parameters shared by every file in
// a batch, plus the settings snapshot taken at request entry.
type uploadOptions struct {
	containerID string
	path        string
	strategy    string
	snapshot    settings.Snapshot
}

// processFileUpload validates, stores and records a single uploaded file
func (h *UploadHandler) processFileUpload(ctx context.Context, fh *multipart.FileHeader, opts uploadOptions) (*UploadResponse, error) {
	fileName := fh.Filename
	if fileName == "" {
		fileName = "upload"
	}

	if err := h.validateFile(fileName, fh.Size, opts.snapshot.Upload); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, apperror.ErrBadRequest.WithMessage("failed to read file")
	}
	defer src.Close()

	// Buffer the whole file: the hash and the storage upload both need it
	buf := new(bytes.Buffer)
	n, err := io.Copy(buf, src)
	if err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}
	fileBytes := buf.Bytes()

	contentHash := computeFileHash(fileBytes)

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(fileBytes)
	}

	key := storage.GenerateDocumentKey(opts.containerID, fileName)
	if _, err := h.store.Save(ctx, key, bytes.NewReader(fileBytes), n, storage.SaveOptions{
		ContentType: mimeType,
	}); err != nil {
		return nil, apperror.ErrStorage.WithInternal(err)
	}

	response, err := h.svc.CreateFromUpload(ctx, UploadParams{
		ContainerID: opts.containerID,
		FileName:    fileName,
		ContentType: mimeType,
		Path:        documentPath(opts.path, opts.snapshot.Upload.DefaultPath, fileName),
		ContentHash: contentHash,
		SizeBytes:   n,
		StorageKey:  key,
		Strategy:    opts.strategy,
		AutoStart:   opts.snapshot.Upload.AutoStartIngestion,
	})
	if err != nil {
		// Clean up the blob if the record could not be created
		_ = h.store.Delete(ctx, key)
		return nil, err
	}

	return response, nil
}

// processBatchFile wraps processFileUpload into a per-file batch result
func (h *UploadHandler) processBatchFile(ctx context.Context, fh *multipart.FileHeader, opts uploadOptions) BatchUploadFileResult {
	fileName := fh.Filename
	if fileName == "" {
		fileName = "upload"
	}

	response, err := h.processFileUpload(ctx, fh, opts)
	if err != nil {
		errMsg := err.Error()
		if appErr, ok := err.(*apperror.Error); ok {
			errMsg = appErr.Message
		}
		return BatchUploadFileResult{
			FileName: fileName,
			Status:   "failed",
			Error:    &errMsg,
		}
	}

	result := BatchUploadFileResult{
		FileName:   fileName,
		Status:     "success",
		DocumentID: &response.Document.ID,
	}
	if response.JobID != "" {
		result.JobID = &response.JobID
	}
	return result
}

// validateFile enforces the upload size limit and the extension allowlist
func (h *UploadHandler) validateFile(fileName string, size int64, upload settings.UploadSettings) error {
	maxBytes := int64(upload.MaxFileSizeMB) * 1024 * 1024
	if maxBytes > 0 && size > maxBytes {
		return apperror.ErrFileTooLarge.WithMessage(
			fmt.Sprintf("file size exceeds maximum of %dMB", upload.MaxFileSizeMB))
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(upload.AllowedExtensions) > 0 {
		allowed := false
		for _, a := range upload.AllowedExtensions {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" && !strings.HasPrefix(a, ".") {
				a = "." + a
			}
			if a == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperror.ErrUnsupportedType.WithMessage(
				fmt.Sprintf("file type %s is not allowed", ext))
		}
	}

	if !h.parsers.Supported(fileName) {
		return apperror.ErrUnsupportedType.WithMessage(
			fmt.Sprintf("no parser available for %s files", ext))
	}

	return nil
}

// documentPath builds the container-scoped path for an uploaded file:
// the requested (or default) folder path plus the file name.
func documentPath(requested, fallback, fileName string) string {
	dir := requested
	if dir == "" {
		dir = fallback
	}
	return folders.NormalizePath(dir) + fileName
}

// computeFileHash computes the SHA-256 hash of file bytes
func computeFileHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
