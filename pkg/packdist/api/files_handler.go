package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/packforge/packdist/pkg/packdist"
)

// zipMagic is the local-file-header signature every zip container starts
// with. The engine itself only validates readability; this pre-check belongs
// to the HTTP layer.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// maxArchiveBytes caps the request body read for one category archive.
const maxArchiveBytes = 2 << 30

// FilesHandler handles HTTP requests for version file distribution
type FilesHandler struct {
	service packdist.Service
	logger  *slog.Logger
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(service packdist.Service, logger *slog.Logger) *FilesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilesHandler{service: service, logger: logger}
}

// Routes returns the routes for version file distribution
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/modpacks/{modpackID}/versions/{versionID}/files/{category}", h.UploadCategoryArchive)
	r.Post("/modpacks/{modpackID}/versions/{versionID}/files/{category}/reuse", h.ReuseCategory)
	r.Get("/modpacks/{modpackID}/versions/{versionID}/manifest", h.GetManifest)
	r.Get("/versions/{versionID}/files/{category}", h.GetCategoryFile)
	r.Get("/category-files/{categoryFileID}/archive", h.DownloadArchive)

	return r
}

// ReuseRequest is the request body for reusing a category from another version
type ReuseRequest struct {
	SourceVersionID string `json:"source_version_id"`
}

// CategoryFileResponse is the response body for a category file listing
type CategoryFileResponse struct {
	ID          string              `json:"id"`
	VersionID   string              `json:"version_id"`
	Category    string              `json:"category"`
	ArchiveHash string              `json:"archive_hash"`
	IsDelta     bool                `json:"is_delta"`
	TotalSize   int64               `json:"total_size"`
	FileCount   int                 `json:"file_count"`
	ReusedFrom  string              `json:"reused_from,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	Files       []FileEntryResponse `json:"files"`
}

// FileEntryResponse is one extracted file in a category file listing
type FileEntryResponse struct {
	RelativePath string `json:"relative_path"`
	ContentHash  string `json:"content_hash"`
	Size         int64  `json:"size"`
}

// UploadCategoryArchive ingests one category archive for a draft version.
// The archive travels as the raw request body; an optional reuse_from query
// parameter asks the engine to copy the category from that version first.
func (h *FilesHandler) UploadCategoryArchive(w http.ResponseWriter, r *http.Request) {
	modpackID, versionID, category, ok := h.pathParams(w, r)
	if !ok {
		return
	}

	archive, err := io.ReadAll(io.LimitReader(r.Body, maxArchiveBytes))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "failed to read archive body")
		return
	}
	if !bytes.HasPrefix(archive, zipMagic) {
		h.renderError(w, r, http.StatusBadRequest, "body is not a zip archive")
		return
	}

	req := packdist.UploadRequest{
		ModpackID:  modpackID,
		VersionID:  versionID,
		Category:   category,
		Archive:    archive,
		UploadedBy: r.Header.Get("X-Uploaded-By"),
	}

	if raw := r.URL.Query().Get("reuse_from"); raw != "" {
		reuseFrom, err := uuid.Parse(raw)
		if err != nil {
			h.renderError(w, r, http.StatusBadRequest, "invalid reuse_from version ID")
			return
		}
		req.ReuseFromVersionID = &reuseFrom
	}

	result, err := h.service.UploadCategoryArchive(r.Context(), req)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// ReuseCategory copies a category from an earlier version of the same
// modpack into the target version without re-upload.
func (h *FilesHandler) ReuseCategory(w http.ResponseWriter, r *http.Request) {
	modpackID, versionID, category, ok := h.pathParams(w, r)
	if !ok {
		return
	}

	var body ReuseRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	sourceVersionID, err := uuid.Parse(body.SourceVersionID)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid source_version_id")
		return
	}

	result, err := h.service.ReuseCategory(r.Context(), packdist.ReuseRequest{
		ModpackID:       modpackID,
		TargetVersionID: versionID,
		SourceVersionID: sourceVersionID,
		Category:        category,
		RequestedBy:     r.Header.Get("X-Uploaded-By"),
	})
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// GetManifest returns the per-version manifest
func (h *FilesHandler) GetManifest(w http.ResponseWriter, r *http.Request) {
	modpackID, err := uuid.Parse(chi.URLParam(r, "modpackID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid modpack ID")
		return
	}
	versionID, err := uuid.Parse(chi.URLParam(r, "versionID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid version ID")
		return
	}

	manifest, err := h.service.GetManifest(r.Context(), modpackID, versionID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, manifest)
}

// GetCategoryFile returns the current category file for a version together
// with its individual files
func (h *FilesHandler) GetCategoryFile(w http.ResponseWriter, r *http.Request) {
	versionID, err := uuid.Parse(chi.URLParam(r, "versionID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid version ID")
		return
	}
	category, err := packdist.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid category")
		return
	}

	cf, files, err := h.service.GetCurrentCategoryFile(r.Context(), versionID, category)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	resp := CategoryFileResponse{
		ID:          cf.ID.String(),
		VersionID:   cf.VersionID.String(),
		Category:    string(cf.Category),
		ArchiveHash: cf.ArchiveHash,
		IsDelta:     cf.IsDelta,
		TotalSize:   cf.TotalSize,
		FileCount:   cf.FileCount,
		CreatedAt:   cf.CreatedAt,
		Files:       make([]FileEntryResponse, 0, len(files)),
	}
	if cf.ReusedFrom != nil {
		resp.ReusedFrom = cf.ReusedFrom.String()
	}
	for _, f := range files {
		resp.Files = append(resp.Files, FileEntryResponse{
			RelativePath: f.RelativePath,
			ContentHash:  f.ContentHash,
			Size:         f.Size,
		})
	}

	render.JSON(w, r, resp)
}

// DownloadArchive streams the archive blob backing a category file
func (h *FilesHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	categoryFileID, err := uuid.Parse(chi.URLParam(r, "categoryFileID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid category file ID")
		return
	}

	rc, err := h.service.DownloadArchive(r.Context(), categoryFileID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/zip")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.ErrorContext(r.Context(), "archive stream aborted", "category_file_id", categoryFileID, "error", err)
	}
}

func (h *FilesHandler) pathParams(w http.ResponseWriter, r *http.Request) (modpackID, versionID uuid.UUID, category packdist.Category, ok bool) {
	modpackID, err := uuid.Parse(chi.URLParam(r, "modpackID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid modpack ID")
		return
	}
	versionID, err = uuid.Parse(chi.URLParam(r, "versionID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid version ID")
		return
	}
	category, err = packdist.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid category")
		return
	}
	return modpackID, versionID, category, true
}

// ErrorResponse is the JSON body for every error
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (h *FilesHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

// renderServiceError maps engine error kinds onto HTTP statuses. Retryable
// kinds carry a hint so the publisher UI can offer a retry.
func (h *FilesHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *packdist.ValidationError
		archiveErr     *packdist.ArchiveError
		notFoundErr    *packdist.NotFoundError
		storageErr     *packdist.StorageError
		persistenceErr *packdist.PersistenceError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &archiveErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &storageErr):
		status = http.StatusBadGateway
	case errors.As(err, &persistenceErr):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "status", status, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error(), Retryable: packdist.Retryable(err)})
}
