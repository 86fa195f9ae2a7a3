package domain

import "time"

// QAHistory is an immutable record of one answered question.
// Context holds exactly the text shown to the model.
type QAHistory struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	VideoID   string    `gorm:"type:text;not null;index:idx_qa_history_video" json:"video_id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Context   string    `gorm:"type:text" json:"context"`
	CreatedAt time.Time `gorm:"index:idx_qa_history_video" json:"created_at"`
}

// TableName returns the database table name for QAHistory.
func (QAHistory) TableName() string {
	return "qa_history"
}

// PlaceholderAnswer is returned by the placeholder QA mode, which performs no retrieval.
type PlaceholderAnswer struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	Mode       string  `json:"mode"`
}

// PlaceholderMode labels answers that were not produced by retrieval.
const PlaceholderMode = "placeholder"
