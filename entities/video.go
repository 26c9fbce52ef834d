package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"course-media/constant"
)

var (
	ErrEmptySource   = errors.New("video source is empty")
	ErrInvalidSource = errors.New("video must reference exactly one of external url or stored asset")
)

// VideoSource is a closed union: a video is either an externally hosted
// reference or a locally stored upload, never both, never neither.
type VideoSource struct {
	kind        constant.SourceKind
	externalURL string
	asset       StoredAsset
}

func NewExternalSource(url string) (VideoSource, error) {
	if strings.TrimSpace(url) == "" {
		return VideoSource{}, ErrEmptySource
	}
	return VideoSource{kind: constant.SourceKindExternal, externalURL: url}, nil
}

func NewStoredSource(asset StoredAsset) (VideoSource, error) {
	if asset.Locator == "" {
		return VideoSource{}, ErrEmptySource
	}
	return VideoSource{kind: constant.SourceKindStored, asset: asset}, nil
}

func (s VideoSource) Kind() constant.SourceKind {
	return s.kind
}

func (s VideoSource) ExternalURL() (string, bool) {
	return s.externalURL, s.kind == constant.SourceKindExternal
}

func (s VideoSource) Asset() (StoredAsset, bool) {
	return s.asset, s.kind == constant.SourceKindStored
}

type Video struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CourseID      uuid.UUID `json:"course_id" gorm:"type:uuid;not null;index:idx_course_videos_course_id;uniqueIndex:unique_course_video_order,priority:1"`
	Title         string    `json:"title" gorm:"type:varchar(255);not null"`
	Description   string    `json:"description" gorm:"type:text"`
	DurationLabel string    `json:"duration_label" gorm:"type:varchar(50);not null"`
	SortOrder     int       `json:"sort_order" gorm:"column:sort_order;not null;uniqueIndex:unique_course_video_order,priority:2"`
	IsPreview     bool      `json:"is_preview" gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`

	SourceKind   constant.SourceKind `json:"source_kind" gorm:"type:varchar(20);not null"`
	ExternalURL  *string             `json:"external_url" gorm:"type:varchar(2000)"`
	AssetLocator *string             `json:"asset_locator" gorm:"type:text"`
	AssetMime    *string             `json:"asset_mime" gorm:"type:varchar(100)"`
	AssetSize    *int64              `json:"asset_size" gorm:"type:bigint"`
}

func (Video) TableName() string {
	return "course_videos"
}

// BeforeSave keeps the invalid both/neither source states out of the
// table even if a caller bypasses SetSource.
func (v *Video) BeforeSave(tx *gorm.DB) error {
	return v.validateSource()
}

func (v *Video) validateSource() error {
	hasExternal := v.ExternalURL != nil && *v.ExternalURL != ""
	hasStored := v.AssetLocator != nil && *v.AssetLocator != ""

	switch v.SourceKind {
	case constant.SourceKindExternal:
		if !hasExternal || hasStored {
			return ErrInvalidSource
		}
	case constant.SourceKindStored:
		if !hasStored || hasExternal {
			return ErrInvalidSource
		}
	default:
		return ErrInvalidSource
	}
	return nil
}

func (v *Video) SetSource(src VideoSource) {
	v.SourceKind = src.kind
	v.ExternalURL = nil
	v.AssetLocator = nil
	v.AssetMime = nil
	v.AssetSize = nil

	switch src.kind {
	case constant.SourceKindExternal:
		url := src.externalURL
		v.ExternalURL = &url
	case constant.SourceKindStored:
		locator := src.asset.Locator
		mime := src.asset.MimeType
		size := src.asset.ByteSize
		v.AssetLocator = &locator
		v.AssetMime = &mime
		v.AssetSize = &size
	}
}

func (v *Video) Source() (VideoSource, error) {
	if err := v.validateSource(); err != nil {
		return VideoSource{}, err
	}
	switch v.SourceKind {
	case constant.SourceKindExternal:
		return NewExternalSource(*v.ExternalURL)
	default:
		asset := StoredAsset{Locator: *v.AssetLocator}
		if v.AssetMime != nil {
			asset.MimeType = *v.AssetMime
		}
		if v.AssetSize != nil {
			asset.ByteSize = *v.AssetSize
		}
		return NewStoredSource(asset)
	}
}
