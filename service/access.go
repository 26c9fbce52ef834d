package service

import (
	"github.com/google/uuid"

	"course-media/entities"
	"course-media/pkg/auth"
)

// AccessGate holds the authorization predicates shared by upload and
// streaming. Predicates are pure; the gate never mutates state.
type AccessGate struct{}

func NewAccessGate() *AccessGate {
	return &AccessGate{}
}

// CanUpload requires an administrative credential.
func (g *AccessGate) CanUpload(identity *auth.Identity, courseID uuid.UUID) bool {
	return identity != nil && identity.IsAdmin()
}

// CanStream lets any authenticated session through; it does not check
// that the caller purchased the owning course. That is current product
// behavior, kept deliberately. Preview videos pass the gate outright.
func (g *AccessGate) CanStream(identity *auth.Identity, video *entities.Video) bool {
	if video != nil && video.IsPreview {
		return true
	}
	return identity != nil
}
