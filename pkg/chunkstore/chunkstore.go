// Package chunkstore buffers in-flight upload chunks in memory until
// the final chunk triggers assembly. Sessions do not survive a process
// restart; an interrupted upload starts over from chunk 0.
package chunkstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-media/apperr"
)

// Metadata is captured from chunk 0 and trusted for the rest of the
// session.
type Metadata struct {
	CourseID      uuid.UUID
	Title         string
	Description   string
	DurationLabel string
	IsPreview     bool
	FileName      string
	MimeType      string
}

type session struct {
	totalChunks int
	chunks      map[int][]byte
	meta        *Metadata
	lastTouched time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

func New(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put buffers one chunk. The first chunk for a key creates the session
// and fixes totalChunks; later chunks must agree with it. A duplicate
// index overwrites, so a retried chunk is idempotent.
func (s *Store) Put(key string, index, totalChunks int, payload []byte) error {
	if totalChunks < 1 {
		return apperr.Validation("totalChunks", "must be at least 1")
	}
	if index < 0 || index >= totalChunks {
		return apperr.Validation("chunkIndex", "out of range for declared totalChunks")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{
			totalChunks: totalChunks,
			chunks:      make(map[int][]byte, totalChunks),
		}
		s.sessions[key] = sess
	}
	if sess.totalChunks != totalChunks {
		return apperr.Validation("totalChunks", "does not match earlier chunks of this upload")
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	sess.chunks[index] = buf
	sess.lastTouched = s.now()

	return nil
}

func (s *Store) SetMetadata(key string, meta Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return
	}
	sess.meta = &meta
	sess.lastTouched = s.now()
}

func (s *Store) Metadata(key string) (Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok || sess.meta == nil {
		return Metadata{}, false
	}
	return *sess.meta, true
}

// Assemble concatenates the session's chunks in index order. It fails
// with the first missing index and leaves the session intact so the
// client can fill the gap and retry.
func (s *Store) Assemble(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, &apperr.IncompleteUploadError{MissingIndex: 0, TotalChunks: 0}
	}

	total := 0
	for i := 0; i < sess.totalChunks; i++ {
		chunk, ok := sess.chunks[i]
		if !ok {
			return nil, &apperr.IncompleteUploadError{MissingIndex: i, TotalChunks: sess.totalChunks}
		}
		total += len(chunk)
	}

	out := make([]byte, 0, total)
	for i := 0; i < sess.totalChunks; i++ {
		out = append(out, sess.chunks[i]...)
	}
	return out, nil
}

func (s *Store) Purge(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle longer than the TTL and returns how many
// were removed. A zero TTL disables expiry.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for key, sess := range s.sessions {
		if sess.lastTouched.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on a ticker until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					zerolog.Ctx(ctx).Info().Int("sessions", removed).Msg("swept expired upload sessions")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
