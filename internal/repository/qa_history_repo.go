package repository

import (
	"context"

	"github.com/timmy/videoqa/internal/domain"
	"gorm.io/gorm"
)

// QAHistoryRepository handles QA history persistence.
type QAHistoryRepository struct {
	db *gorm.DB
}

// NewQAHistoryRepository creates a new QAHistoryRepository.
func NewQAHistoryRepository(db *gorm.DB) *QAHistoryRepository {
	return &QAHistoryRepository{db: db}
}

// Create inserts a history entry. Entries are never updated afterwards.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: answered question to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *QAHistoryRepository) Create(ctx context.Context, entry *domain.QAHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByVideo returns a video's history, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: owning video ID.
// Returns:
//   - []domain.QAHistory: entries ordered by created_at descending; empty when none.
//   - error: non-nil if the query fails.
func (r *QAHistoryRepository) ListByVideo(ctx context.Context, videoID string) ([]domain.QAHistory, error) {
	entries := []domain.QAHistory{}
	if err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByVideo counts history entries for a video.
func (r *QAHistoryRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.QAHistory{}).Where("video_id = ?", videoID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
