// Package server provides the HTTP server for the Vidrpy API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/Eugene7997/Vidrpy/internal/asset"
)

// CreateVideoRequest is the HTTP request body for creating a video record.
type CreateVideoRequest struct {
	// Filename is the display name of the recording.
	Filename string `json:"filename" validate:"required,min=1,max=255"`
	// IndexedDBKey is the client-local storage key.
	IndexedDBKey *string `json:"indexeddb_key" validate:"omitempty,max=255"`
	// SizeBytes is the recorded file size.
	SizeBytes *int64 `json:"size_bytes" validate:"omitempty,min=0"`
	// DurationMs is the recorded duration.
	DurationMs *int64 `json:"duration_ms" validate:"omitempty,min=0"`
}

// UpdateVideoRequest is the HTTP request body for a partial video update.
type UpdateVideoRequest struct {
	Filename            *string `json:"filename" validate:"omitempty,min=1,max=255"`
	UploadStatusPrivate *string `json:"upload_status_private" validate:"omitempty,oneof=pending uploading success failed"`
	UploadStatusCloud   *string `json:"upload_status_cloud" validate:"omitempty,oneof=pending uploading success failed"`
	RetryCountPrivate   *int    `json:"retry_count_private" validate:"omitempty,min=0"`
	RetryCountCloud     *int    `json:"retry_count_cloud" validate:"omitempty,min=0"`
}

// TrackStatusRequest is the HTTP request body for moving a single track.
type TrackStatusRequest struct {
	Status     string `json:"status" validate:"required,oneof=pending uploading success failed"`
	RetryCount *int   `json:"retry_count" validate:"omitempty,min=0"`
}

// VideoResponse is the HTTP representation of a video record.
type VideoResponse struct {
	VideoID             string    `json:"video_id"`
	Filename            string    `json:"filename"`
	IndexedDBKey        *string   `json:"indexeddb_key"`
	CloudPath           *string   `json:"cloud_path"`
	SizeBytes           *int64    `json:"size_bytes"`
	DurationMs          *int64    `json:"duration_ms"`
	UploadStatusPrivate string    `json:"upload_status_private"`
	UploadStatusCloud   string    `json:"upload_status_cloud"`
	RetryCountPrivate   int       `json:"retry_count_private"`
	RetryCountCloud     int       `json:"retry_count_cloud"`
	CreatedAt           time.Time `json:"created_at"`
	LastModified        time.Time `json:"last_modified"`
}

// UploadResponse is the HTTP response after a successful upload.
type UploadResponse struct {
	Message   string `json:"message"`
	VideoID   string `json:"video_id"`
	CloudPath string `json:"cloud_path"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

func toVideoResponse(a *asset.Asset) VideoResponse {
	return VideoResponse{
		VideoID:             a.ID,
		Filename:            a.DisplayName,
		IndexedDBKey:        a.LocalReference,
		CloudPath:           a.DurableReference,
		SizeBytes:           a.SizeBytes,
		DurationMs:          a.DurationMs,
		UploadStatusPrivate: string(a.LocalStatus),
		UploadStatusCloud:   string(a.CloudStatus),
		RetryCountPrivate:   a.LocalRetryCount,
		RetryCountCloud:     a.CloudRetryCount,
		CreatedAt:           a.CreatedAt,
		LastModified:        a.LastModified,
	}
}

func toVideoResponses(assets []*asset.Asset) []VideoResponse {
	out := make([]VideoResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, toVideoResponse(a))
	}
	return out
}

func (r UpdateVideoRequest) toPatch() asset.MetadataPatch {
	return asset.MetadataPatch{
		DisplayName:     r.Filename,
		LocalStatus:     toStatus(r.UploadStatusPrivate),
		CloudStatus:     toStatus(r.UploadStatusCloud),
		LocalRetryCount: r.RetryCountPrivate,
		CloudRetryCount: r.RetryCountCloud,
	}
}

func toStatus(s *string) *asset.Status {
	if s == nil {
		return nil
	}
	st := asset.Status(*s)
	return &st
}
