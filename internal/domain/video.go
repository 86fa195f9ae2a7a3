package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// VideoStatus represents the lifecycle status of a video.
// Values include VideoStatusPending, VideoStatusProcessing, VideoStatusCompleted, and VideoStatusFailed.
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// Video is a source video bound to exactly one vector collection.
// CollectionID is assigned once at creation and never reused.
type Video struct {
	ID            string      `gorm:"type:text;primaryKey" json:"id"`
	URL           string      `gorm:"type:text;not null" json:"url"`
	Title         string      `gorm:"type:text" json:"title"`
	Description   string      `gorm:"type:text" json:"description,omitempty"`
	Duration      *int        `json:"duration,omitempty"`
	Status        VideoStatus `gorm:"type:text;not null;index:idx_videos_status;default:pending" json:"status"`
	CollectionID  string      `gorm:"type:text;not null;uniqueIndex:idx_videos_collection" json:"collection_id"`
	Transcription *string     `gorm:"type:text" json:"transcription"`
	ErrorMessage  string      `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	History []QAHistory `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for Video.
func (Video) TableName() string {
	return "videos"
}

// Transcript is the output of the transcription collaborator.
// When Segments is set, Text is the segment texts joined by single spaces (see NewTranscript).
type Transcript struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments,omitempty"`

	// Source metadata reported by the downloader, if any.
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// TranscriptSegment is a timed span of the transcript, in seconds from the start.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// NewTranscript builds a Transcript whose Text is the trimmed segment texts joined by spaces.
func NewTranscript(segments []TranscriptSegment) *Transcript {
	parts := make([]string, 0, len(segments))
	kept := make([]TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		seg.Text = text
		parts = append(parts, text)
		kept = append(kept, seg)
	}
	return &Transcript{Text: strings.Join(parts, " "), Segments: kept}
}

// StartAt returns the start time of the segment covering rune offset in Text.
// It reports false when the transcript has no segments.
func (t *Transcript) StartAt(offset int) (float64, bool) {
	if len(t.Segments) == 0 {
		return 0, false
	}
	pos := 0
	for _, seg := range t.Segments {
		// +1 for the joining space
		pos += utf8.RuneCountInString(strings.TrimSpace(seg.Text)) + 1
		if offset < pos {
			return seg.Start, true
		}
	}
	return t.Segments[len(t.Segments)-1].Start, true
}

// FormatTimestamp renders seconds as HH:MM:SS.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
