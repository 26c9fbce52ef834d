package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-media/apperr"
	"course-media/dto"
	"course-media/entities"
	"course-media/pkg/auth"
	"course-media/pkg/chunkstore"
	"course-media/pkg/storage"
	"course-media/repository"
)

// EventPublisher is satisfied by the rabbitmq publisher; a nil
// publisher disables events.
type EventPublisher interface {
	PublishVideoStored(ctx context.Context, event dto.VideoStoredEvent) error
}

// ChunkResult is either a progress acknowledgement (intermediate
// chunk) or the created video (final chunk), never both.
type ChunkResult struct {
	Ack   *dto.ChunkAckResponse
	Video *entities.Video
}

type UploadService interface {
	ReceiveChunk(ctx context.Context, identity *auth.Identity, req dto.ChunkUploadRequest, payload []byte) (*ChunkResult, error)
}

type uploadService struct {
	chunks    *chunkstore.Store
	backend   storage.Backend
	repo      repository.CourseRepository
	gate      *AccessGate
	publisher EventPublisher
}

func NewUploadService(chunks *chunkstore.Store, backend storage.Backend, repo repository.CourseRepository, gate *AccessGate, publisher EventPublisher) UploadService {
	return &uploadService{
		chunks:    chunks,
		backend:   backend,
		repo:      repo,
		gate:      gate,
		publisher: publisher,
	}
}

func (s *uploadService) ReceiveChunk(ctx context.Context, identity *auth.Identity, req dto.ChunkUploadRequest, payload []byte) (*ChunkResult, error) {
	if !s.gate.CanUpload(identity, uuid.Nil) {
		return nil, apperr.Auth("administrator credential required")
	}

	if req.UploadID == "" {
		return nil, apperr.Validation("uploadId", "required")
	}
	// The session key is the client-issued upload id, never the file
	// name, so concurrent uploads of identically named files cannot
	// collide.
	uploadKey, err := uuid.Parse(req.UploadID)
	if err != nil {
		return nil, apperr.Validation("uploadId", "must be a uuid")
	}
	if req.TotalChunks < 1 {
		return nil, apperr.Validation("totalChunks", "must be at least 1")
	}
	if req.ChunkIndex < 0 || req.ChunkIndex >= req.TotalChunks {
		return nil, apperr.Validation("chunkIndex", "out of range for declared totalChunks")
	}
	if len(payload) == 0 {
		return nil, apperr.Validation("chunk", "empty chunk payload")
	}

	key := uploadKey.String()

	var meta *chunkstore.Metadata
	if req.ChunkIndex == 0 {
		meta, err = metadataFromRequest(req)
		if err != nil {
			return nil, err
		}
	}

	if err := s.chunks.Put(key, req.ChunkIndex, req.TotalChunks, payload); err != nil {
		return nil, err
	}
	if meta != nil {
		s.chunks.SetMetadata(key, *meta)
	}

	if req.ChunkIndex < req.TotalChunks-1 {
		return &ChunkResult{
			Ack: &dto.ChunkAckResponse{
				ReceivedIndex:   req.ChunkIndex,
				TotalChunks:     req.TotalChunks,
				PercentComplete: float64(req.ChunkIndex+1) / float64(req.TotalChunks) * 100,
			},
		}, nil
	}

	return s.finishUpload(ctx, key)
}

// finishUpload runs once the final chunk is in: assemble, persist,
// attach to the course, purge. Chunks are retained on assembly gaps
// and on storage failures so a retry of only the missing piece can
// succeed, and purged on success or when the course is gone.
func (s *uploadService) finishUpload(ctx context.Context, key string) (*ChunkResult, error) {
	data, err := s.chunks.Assemble(key)
	if err != nil {
		return nil, err
	}

	meta, ok := s.chunks.Metadata(key)
	if !ok {
		return nil, apperr.Validation("metadata", "first chunk metadata missing for this upload")
	}

	if _, err := s.repo.FindCourseByID(ctx, meta.CourseID); err != nil {
		s.chunks.Purge(key)
		return nil, err
	}

	asset, err := s.backend.Persist(ctx, data, meta.MimeType, meta.FileName)
	if err != nil {
		return nil, err
	}

	source, err := entities.NewStoredSource(asset)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	video := &entities.Video{
		Title:         meta.Title,
		Description:   meta.Description,
		DurationLabel: meta.DurationLabel,
		IsPreview:     meta.IsPreview,
		CreatedAt:     time.Now(),
	}
	video.SetSource(source)

	created, err := s.repo.AppendVideo(ctx, meta.CourseID, video)
	if err != nil {
		var notFound *apperr.NotFoundError
		if errors.As(err, &notFound) {
			s.chunks.Purge(key)
		}
		return nil, err
	}

	s.chunks.Purge(key)

	if s.publisher != nil {
		event := dto.VideoStoredEvent{
			VideoID:  created.ID,
			CourseID: created.CourseID,
			Locator:  asset.Locator,
			MimeType: asset.MimeType,
			ByteSize: asset.ByteSize,
			StoredAt: time.Now(),
		}
		if err := s.publisher.PublishVideoStored(ctx, event); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("video_id", created.ID.String()).Msg("failed to publish video.stored event")
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("video_id", created.ID.String()).
		Str("course_id", created.CourseID.String()).
		Int64("bytes", asset.ByteSize).
		Msg("upload assembled and attached")

	return &ChunkResult{Video: created}, nil
}

func metadataFromRequest(req dto.ChunkUploadRequest) (*chunkstore.Metadata, error) {
	if req.CourseID == "" {
		return nil, apperr.Validation("courseId", "required on first chunk")
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		return nil, apperr.Validation("courseId", "must be a uuid")
	}
	if req.Title == "" {
		return nil, apperr.Validation("title", "required on first chunk")
	}
	if req.DurationLabel == "" {
		return nil, apperr.Validation("durationLabel", "required on first chunk")
	}

	return &chunkstore.Metadata{
		CourseID:      courseID,
		Title:         req.Title,
		Description:   req.Description,
		DurationLabel: req.DurationLabel,
		IsPreview:     req.IsPreview,
		FileName:      req.FileName,
		MimeType:      req.FileType,
	}, nil
}
