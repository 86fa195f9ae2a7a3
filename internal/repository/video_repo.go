package repository

import (
	"context"
	"errors"

	"github.com/timmy/videoqa/internal/domain"
	"gorm.io/gorm"
)

// VideoRepository handles video record operations.
type VideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new VideoRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *VideoRepository: repository instance bound to db.
func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a new video record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - video: video record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *VideoRepository) Create(ctx context.Context, video *domain.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

// Update saves every column of an existing video record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - video: video record with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *VideoRepository) Update(ctx context.Context, video *domain.Video) error {
	return r.db.WithContext(ctx).Save(video).Error
}

// GetByID retrieves a video by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: video ID.
// Returns:
//   - *domain.Video: video record if found.
//   - error: domain not-found error when missing, or the query error.
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	var video domain.Video
	if err := r.db.WithContext(ctx).First(&video, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("video", id)
		}
		return nil, err
	}
	return &video, nil
}

// List retrieves videos newest first with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return; <= 0 means no limit.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Video: video records.
//   - error: non-nil if the query fails.
func (r *VideoRepository) List(ctx context.Context, limit, offset int) ([]domain.Video, error) {
	var videos []domain.Video
	query := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// ListIDs returns the IDs of every video, oldest first.
func (r *VideoRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&domain.Video{}).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountByStatus counts videos in the given status.
func (r *VideoRepository) CountByStatus(ctx context.Context, status domain.VideoStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Video{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a video and its QA history in one transaction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: video ID to delete.
// Returns:
//   - error: domain not-found error when no video matched, or the query error.
func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", id).Delete(&domain.QAHistory{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Video{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("video", id)
		}
		return nil
	})
}
