package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-media/apperr"
	"course-media/constant"
	"course-media/pkg/auth"
	"course-media/pkg/storage"
	"course-media/repository"
)

// StreamResult is a fully prepared HTTP response: status, headers and
// body bytes. The handler writes it verbatim.
type StreamResult struct {
	Status      int
	ContentType string
	Headers     map[string]string
	Body        []byte
}

type StreamService interface {
	Stream(ctx context.Context, identity *auth.Identity, videoID uuid.UUID, rangeHeader string) (*StreamResult, error)
}

type streamService struct {
	backend storage.Backend
	repo    repository.CourseRepository
	gate    *AccessGate
	window  int64
}

func NewStreamService(backend storage.Backend, repo repository.CourseRepository, gate *AccessGate, window int64) StreamService {
	if window <= 0 {
		window = constant.DefaultStreamWindow
	}
	return &streamService{
		backend: backend,
		repo:    repo,
		gate:    gate,
		window:  window,
	}
}

func (s *streamService) Stream(ctx context.Context, identity *auth.Identity, videoID uuid.UUID, rangeHeader string) (*StreamResult, error) {
	// Authentication comes first: an anonymous caller gets 401 before
	// any repository or storage access, range header or not.
	if identity == nil {
		return nil, apperr.Auth("authentication required")
	}

	video, err := s.repo.FindVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if !s.gate.CanStream(identity, video) {
		return nil, apperr.Auth("not allowed to stream this video")
	}

	source, err := video.Source()
	if err != nil {
		return nil, apperr.NotFound("asset")
	}
	asset, ok := source.Asset()
	if !ok {
		// Externally hosted videos are not proxied through this
		// service.
		return nil, apperr.NotFound("asset")
	}

	size, err := s.backend.Size(ctx, asset.Locator)
	if err != nil {
		return nil, err
	}

	contentType := asset.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if rangeHeader == "" {
		body, err := s.backend.ReadRange(ctx, asset.Locator, 0, size)
		if err != nil {
			return nil, err
		}
		return &StreamResult{
			Status:      200,
			ContentType: contentType,
			Headers:     fullHeaders(size),
			Body:        body,
		}, nil
	}

	start, clientEnd, err := parseRange(rangeHeader)
	if err != nil {
		return nil, err
	}
	if start >= size {
		return nil, &apperr.RangeNotSatisfiableError{Size: size}
	}

	// Bounded window per request: progressive playback without pulling
	// a whole asset at once.
	end := start + s.window - 1
	if clientEnd >= 0 && clientEnd < end {
		end = clientEnd
	}
	if end > size-1 {
		end = size - 1
	}

	body, err := s.backend.ReadRange(ctx, asset.Locator, start, end-start+1)
	if err != nil {
		return nil, err
	}

	headers := protectiveHeaders()
	headers["Accept-Ranges"] = "bytes"
	headers["Content-Range"] = fmt.Sprintf("bytes %d-%d/%d", start, end, size)
	headers["Content-Length"] = strconv.FormatInt(end-start+1, 10)

	zerolog.Ctx(ctx).Debug().
		Str("video_id", videoID.String()).
		Int64("start", start).
		Int64("end", end).
		Int64("size", size).
		Msg("serving ranged window")

	return &StreamResult{
		Status:      206,
		ContentType: contentType,
		Headers:     headers,
		Body:        body,
	}, nil
}

// parseRange handles the bytes=<start>- and bytes=<start>-<end> forms.
// clientEnd is -1 when the request leaves the end open.
func parseRange(header string) (start, clientEnd int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, apperr.Validation("range", "unsupported range unit")
	}

	startPart, endPart, _ := strings.Cut(spec, "-")
	start, err = strconv.ParseInt(strings.TrimSpace(startPart), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, apperr.Validation("range", "malformed range header")
	}

	clientEnd = -1
	if trimmed := strings.TrimSpace(endPart); trimmed != "" {
		clientEnd, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || clientEnd < start {
			return 0, 0, apperr.Validation("range", "malformed range header")
		}
	}

	return start, clientEnd, nil
}

func fullHeaders(size int64) map[string]string {
	headers := protectiveHeaders()
	headers["Accept-Ranges"] = "bytes"
	headers["Content-Length"] = strconv.FormatInt(size, 10)
	return headers
}

// protectiveHeaders discourage caching and embedding of gated video.
// Advisory only: they raise the effort to rip a stream, they do not
// make it impossible.
func protectiveHeaders() map[string]string {
	return map[string]string{
		"Cache-Control":          "no-cache, no-store, must-revalidate",
		"Pragma":                 "no-cache",
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"X-Video-Protected":      "true",
	}
}
