package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Eugene7997/Vidrpy/internal/asset"
	"github.com/Eugene7997/Vidrpy/internal/asset/id"
	"github.com/Eugene7997/Vidrpy/internal/storage"
)

const (
	defaultMaxUploadBytes = 500 << 20
	multipartMemory       = 32 << 20
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *asset.Service
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes limits the size of an upload request body.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *asset.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListVideos handles GET /api/v1/videos requests.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	assets, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, err, "", "list videos")
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponses(assets))
}

// CreateVideo handles POST /api/v1/videos requests.
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req CreateVideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.Create(r.Context(), owner, asset.CreateParams{
		DisplayName:    req.Filename,
		LocalReference: req.IndexedDBKey,
		SizeBytes:      req.SizeBytes,
		DurationMs:     req.DurationMs,
	})
	if err != nil {
		h.writeServiceError(w, err, "", "create video")
		return
	}
	writeJSON(w, http.StatusCreated, toVideoResponse(a))
}

// GetVideo handles GET /api/v1/videos/{id} requests.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	owner, videoID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	a, err := h.service.Get(r.Context(), owner, videoID)
	if err != nil {
		h.writeServiceError(w, err, videoID, "get video")
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(a))
}

// UpdateVideo handles PATCH /api/v1/videos/{id} requests.
func (h *Handlers) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	owner, videoID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	var req UpdateVideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.Update(r.Context(), owner, videoID, req.toPatch())
	if err != nil {
		h.writeServiceError(w, err, videoID, "update video")
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(a))
}

// SetTrackStatus handles PUT /api/v1/videos/{id}/tracks/{track} requests.
func (h *Handlers) SetTrackStatus(w http.ResponseWriter, r *http.Request) {
	owner, videoID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	track, ok := asset.ParseTrack(r.PathValue("track"))
	if !ok {
		writeError(w, http.StatusBadRequest, "track must be local, private or cloud", "INVALID_TRACK")
		return
	}

	var req TrackStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.SetTrackStatus(r.Context(), owner, videoID, track, asset.Status(req.Status), req.RetryCount)
	if err != nil {
		h.writeServiceError(w, err, videoID, "set track status")
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(a))
}

// UploadVideo handles POST /api/v1/videos/{id}/upload requests.
// The file is read from the multipart field "file".
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	owner, videoID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large", "FILE_TOO_LARGE")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart form body is required", "INVALID_FORM")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Warn("missing upload file",
			slog.String("asset_id", videoID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required", "MISSING_FILE")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload", "INVALID_FILE")
		return
	}

	ref, err := h.service.Upload(r.Context(), owner, videoID, data, header.Filename)
	if err != nil {
		h.writeServiceError(w, err, videoID, "upload video")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:   "Video uploaded successfully",
		VideoID:   videoID,
		CloudPath: ref,
	})
}

// DeleteVideo handles DELETE /api/v1/videos/{id} requests.
func (h *Handlers) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	owner, videoID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), owner, videoID); err != nil {
		h.writeServiceError(w, err, videoID, "delete video")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Video deleted successfully"})
}

func (h *Handlers) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
		return "", false
	}
	return owner, true
}

func (h *Handlers) ownerAndID(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	owner, ok := h.owner(w, r)
	if !ok {
		return "", "", false
	}
	videoID := r.PathValue("id")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "video ID is required", "MISSING_VIDEO_ID")
		return "", "", false
	}
	if !id.Valid(videoID) {
		writeError(w, http.StatusBadRequest, "video ID must be a UUID", "INVALID_VIDEO_ID")
		return "", "", false
	}
	return owner, videoID, true
}

// decode reads and validates a JSON body into dst.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// writeServiceError maps service errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error, videoID, op string) {
	var storeErr *storage.StoreError
	switch {
	case errors.Is(err, asset.ErrNotFound):
		writeError(w, http.StatusNotFound, "Video not found", "VIDEO_NOT_FOUND")
	case errors.Is(err, asset.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, asset.ErrInvalidStatus), errors.Is(err, asset.ErrInvalidPatch):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, asset.ErrUploadInProgress):
		writeError(w, http.StatusConflict, "an upload for this video is already in progress", "UPLOAD_IN_PROGRESS")
	case errors.As(err, &storeErr):
		h.logger.Error("upload failed",
			slog.String("asset_id", videoID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Upload failed: "+storeErr.Error(), "UPLOAD_FAILED")
	default:
		h.logger.Error("request failed",
			slog.String("op", op),
			slog.String("asset_id", videoID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, op+" failed", "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
