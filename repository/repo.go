package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"course-media/apperr"
	"course-media/entities"
)

type CourseRepository interface {
	GetDB() *gorm.DB
	FindCourseByID(ctx context.Context, id uuid.UUID) (*entities.Course, error)
	FindVideoByID(ctx context.Context, id uuid.UUID) (*entities.Video, error)
	ListVideosByCourseID(ctx context.Context, courseID uuid.UUID) ([]*entities.Video, error)
	AppendVideo(ctx context.Context, courseID uuid.UUID, video *entities.Video) (*entities.Video, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) CourseRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) FindCourseByID(ctx context.Context, id uuid.UUID) (*entities.Course, error) {
	course := &entities.Course{}
	err := r.GetDB().WithContext(ctx).First(course, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("course")
		}
		return nil, err
	}
	return course, nil
}

func (r *repo) FindVideoByID(ctx context.Context, id uuid.UUID) (*entities.Video, error) {
	video := &entities.Video{}
	err := r.GetDB().WithContext(ctx).First(video, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("video")
		}
		return nil, err
	}
	return video, nil
}

func (r *repo) ListVideosByCourseID(ctx context.Context, courseID uuid.UUID) ([]*entities.Video, error) {
	var videos []*entities.Video
	err := r.GetDB().WithContext(ctx).Where("course_id = ?", courseID).Order("sort_order ASC").Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// AppendVideo inserts a video at the next sort order for the course.
// The course row is locked for the duration of the transaction so two
// concurrent appends cannot pick the same order or drop each other.
func (r *repo) AppendVideo(ctx context.Context, courseID uuid.UUID, video *entities.Video) (*entities.Video, error) {
	err := r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course := &entities.Course{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(course, "id = ?", courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("course")
			}
			return err
		}

		var maxOrder int
		if err := tx.Model(&entities.Video{}).
			Where("course_id = ?", courseID).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}

		if video.ID == uuid.Nil {
			video.ID = uuid.New()
		}
		video.CourseID = courseID
		video.SortOrder = maxOrder + 1

		return tx.Create(video).Error
	})
	if err != nil {
		return nil, err
	}
	return video, nil
}
