package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemQualityDelta records one item's estimated_quality before and after
// a batch training pass, for the audit log.
type ItemQualityDelta struct {
	ItemID  uuid.UUID `json:"item_id"`
	Before  float64   `json:"before"`
	After   float64   `json:"after"`
}

// TrainingRun is the append-only audit log row written after each C6
// pass, successful or not.
type TrainingRun struct {
	RunID           uuid.UUID          `json:"run_id" db:"run_id"`
	DaysProcessed   int                `json:"days_processed" db:"days_processed"`
	Interactions    int                `json:"interactions" db:"interactions"`
	ProjectsUpdated int                `json:"projects_updated" db:"projects_updated"`
	Succeeded       bool               `json:"succeeded" db:"succeeded"`
	FailureReason   string             `json:"failure_reason,omitempty" db:"failure_reason"`
	PostMetrics     []ItemQualityDelta `json:"post_metrics" db:"-"`
	Timestamp       time.Time          `json:"timestamp" db:"timestamp"`
}

// TrainingSummary is returned synchronously to the caller of train().
type TrainingSummary struct {
	RunID           uuid.UUID `json:"run_id"`
	DaysProcessed   int       `json:"days_processed"`
	Interactions    int       `json:"interactions"`
	ProjectsUpdated int       `json:"projects_updated"`
}

// TrainRequest is the HTTP payload for triggering a batch pass.
type TrainRequest struct {
	Days         int     `json:"days" validate:"required,min=1"`
	LearningRate float64 `json:"learning_rate,omitempty"`
}
