package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-media/apperr"
	"course-media/dto"
	"course-media/entities"
	"course-media/repository"
	"course-media/service"
)

type Handler struct {
	Upload service.UploadService
	Stream service.StreamService
	Repo   repository.CourseRepository
}

func New(upload service.UploadService, stream service.StreamService, repo repository.CourseRepository) *Handler {
	return &Handler{
		Upload: upload,
		Stream: stream,
		Repo:   repo,
	}
}

// UploadChunk accepts one multipart chunk. Intermediate chunks get a
// 202 with progress; the final chunk gets a 201 with the created
// video.
func (h *Handler) UploadChunk(c *gin.Context) {
	var req dto.ChunkUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, apperr.Validation("form", "malformed multipart form"))
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		writeError(c, apperr.Validation("chunk", "missing chunk file part"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		writeError(c, apperr.Validation("chunk", "unreadable chunk file part"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(c, apperr.Validation("chunk", "unreadable chunk file part"))
		return
	}

	result, err := h.Upload.ReceiveChunk(c.Request.Context(), identityFromContext(c), req, payload)
	if err != nil {
		writeError(c, err)
		return
	}

	if result.Ack != nil {
		c.JSON(http.StatusAccepted, result.Ack)
		return
	}
	c.JSON(http.StatusCreated, videoResponse(result.Video))
}

// StreamVideo serves a stored video honoring Range requests.
func (h *Handler) StreamVideo(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, apperr.Validation("id", "must be a uuid"))
		return
	}

	result, err := h.Stream.Stream(c.Request.Context(), identityFromContext(c), videoID, c.GetHeader("Range"))
	if err != nil {
		writeError(c, err)
		return
	}

	for key, value := range result.Headers {
		c.Header(key, value)
	}
	c.Data(result.Status, result.ContentType, result.Body)
}

// ListCourseVideos returns a course's videos in sort order, for
// playback clients building a lesson list.
func (h *Handler) ListCourseVideos(c *gin.Context) {
	if identityFromContext(c) == nil {
		writeError(c, apperr.Auth("authentication required"))
		return
	}

	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, apperr.Validation("id", "must be a uuid"))
		return
	}

	if _, err := h.Repo.FindCourseByID(c.Request.Context(), courseID); err != nil {
		writeError(c, err)
		return
	}

	videos, err := h.Repo.ListVideosByCourseID(c.Request.Context(), courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]dto.VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, videoResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"videos": out})
}

func videoResponse(v *entities.Video) dto.VideoResponse {
	resp := dto.VideoResponse{
		ID:            v.ID,
		CourseID:      v.CourseID,
		Title:         v.Title,
		Description:   v.Description,
		DurationLabel: v.DurationLabel,
		SortOrder:     v.SortOrder,
		IsPreview:     v.IsPreview,
		SourceKind:    string(v.SourceKind),
		CreatedAt:     v.CreatedAt,
	}
	if v.AssetSize != nil {
		resp.ByteSize = *v.AssetSize
	}
	return resp
}

// writeError is the single place service errors become HTTP. Internal
// detail (wrapped causes, filesystem paths) never reaches the body.
func writeError(c *gin.Context, err error) {
	status, code, message := apperr.StatusAndCode(err)

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	var badRange *apperr.RangeNotSatisfiableError
	if errors.As(err, &badRange) {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", badRange.Size))
	}

	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error: dto.ErrorBody{Code: code, Message: message},
	})
}
