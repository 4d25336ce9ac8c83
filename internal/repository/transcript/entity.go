package transcript

import "time"

// Record is one exported conversation. History is stored as serialized
// JSON; the export is a durable archive, not a queryable transcript store.
type Record struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       string    `gorm:"size:64;index" json:"session_id"`
	Position        string    `gorm:"size:128" json:"position"`
	Difficulty      float64   `json:"difficulty"`
	InterviewerType string    `gorm:"size:64" json:"interviewer_type"`
	Turns           int       `json:"turns"`
	History         string    `gorm:"type:longtext" json:"history"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Record) TableName() string {
	return "interview_transcripts"
}
