package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/voxlabs/interviewd/internal/types"
)

// ExportInput carries everything needed to persist one finished
// conversation.
type ExportInput struct {
	SessionID       string
	Position        string
	Difficulty      float64
	InterviewerType string
	Turns           int
	History         []types.Utterance
}

type Repository interface {
	Export(ctx context.Context, in ExportInput) (*Record, error)
	FindBySession(ctx context.Context, sessionID string) ([]Record, error)
}

type gormTranscriptRepo struct {
	db *gorm.DB
}

func NewGormTranscriptRepo(db *gorm.DB) Repository {
	return &gormTranscriptRepo{db: db}
}

func (r *gormTranscriptRepo) Export(ctx context.Context, in ExportInput) (*Record, error) {
	history, err := json.Marshal(in.History)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize history: %w", err)
	}

	rec := Record{
		SessionID:       in.SessionID,
		Position:        in.Position,
		Difficulty:      in.Difficulty,
		InterviewerType: in.InterviewerType,
		Turns:           in.Turns,
		History:         string(history),
		CreatedAt:       time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to store transcript: %w", err)
	}
	return &rec, nil
}

func (r *gormTranscriptRepo) FindBySession(ctx context.Context, sessionID string) ([]Record, error) {
	var recs []Record
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at desc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transcripts: %w", err)
	}
	return recs, nil
}
