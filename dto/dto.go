package dto

import (
	"time"

	"github.com/google/uuid"
)

// ChunkUploadRequest carries the non-file multipart fields of a chunk
// upload. Metadata fields are only read on chunk 0.
type ChunkUploadRequest struct {
	UploadID    string `form:"uploadId"`
	ChunkIndex  int    `form:"chunkIndex"`
	TotalChunks int    `form:"totalChunks"`
	FileName    string `form:"fileName"`
	FileType    string `form:"fileType"`
	FileSize    int64  `form:"fileSize"`

	CourseID      string `form:"courseId"`
	Title         string `form:"title"`
	Description   string `form:"description"`
	DurationLabel string `form:"durationLabel"`
	IsPreview     bool   `form:"isPreview"`
}

type ChunkAckResponse struct {
	ReceivedIndex   int     `json:"receivedIndex"`
	TotalChunks     int     `json:"totalChunks"`
	PercentComplete float64 `json:"percentComplete"`
}

type VideoResponse struct {
	ID            uuid.UUID `json:"id"`
	CourseID      uuid.UUID `json:"courseId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	DurationLabel string    `json:"durationLabel"`
	SortOrder     int       `json:"sortOrder"`
	IsPreview     bool      `json:"isPreview"`
	SourceKind    string    `json:"sourceKind"`
	ByteSize      int64     `json:"byteSize,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// VideoStoredEvent is published after a final chunk is assembled and
// attached, so downstream workers can pick the asset up.
type VideoStoredEvent struct {
	VideoID  uuid.UUID `json:"videoId"`
	CourseID uuid.UUID `json:"courseId"`
	Locator  string    `json:"locator"`
	MimeType string    `json:"mimeType"`
	ByteSize int64     `json:"byteSize"`
	StoredAt time.Time `json:"storedAt"`
}
