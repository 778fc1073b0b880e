package models

import (
	"time"

	"github.com/google/uuid"
)

// InteractionKind is a closed enumeration; every reward-calculation and
// ingest code path switches on it exhaustively rather than string-matching.
type InteractionKind string

const (
	KindImpression InteractionKind = "impression"
	KindClick      InteractionKind = "click"
	KindBookmark   InteractionKind = "bookmark"
	KindUnbookmark InteractionKind = "unbookmark"
	KindHoverLong  InteractionKind = "hover_long"
	KindGitHubVisit InteractionKind = "github_visit"
	KindQuickExit  InteractionKind = "quick_exit"
	KindFeedback1  InteractionKind = "feedback_1"
	KindFeedback2  InteractionKind = "feedback_2"
	KindFeedback3  InteractionKind = "feedback_3"
	KindFeedback4  InteractionKind = "feedback_4"
	KindFeedback5  InteractionKind = "feedback_5"
)

func (k InteractionKind) Valid() bool {
	switch k {
	case KindImpression, KindClick, KindBookmark, KindUnbookmark, KindHoverLong,
		KindGitHubVisit, KindQuickExit,
		KindFeedback1, KindFeedback2, KindFeedback3, KindFeedback4, KindFeedback5:
		return true
	default:
		return false
	}
}

// Interaction is an immutable fact recorded by an external collaborator
// through C9. Once written it is never mutated, only marked absorbed by
// a TrainingRun.
type Interaction struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id" validate:"required"`
	ItemID     uuid.UUID       `json:"item_id" db:"item_id" validate:"required"`
	Kind       InteractionKind `json:"kind" db:"kind" validate:"required"`
	Position   int             `json:"position" db:"position"`
	DurationS  *float64        `json:"duration_s,omitempty" db:"duration_s"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
	SessionID  *uuid.UUID      `json:"session_id,omitempty" db:"session_id"`
	AbsorbedBy *uuid.UUID      `json:"-" db:"absorbed_by"`
}

// InteractionRequest is the HTTP payload accepted by the ingest endpoint.
type InteractionRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	ItemID    uuid.UUID `json:"item_id" validate:"required"`
	Kind      string    `json:"kind" validate:"required"`
	Position  int       `json:"position,omitempty" validate:"min=0"`
	DurationS *float64  `json:"duration_s,omitempty"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
}

// InteractionResponse is returned to the caller after ingest.
type InteractionResponse struct {
	Reward  float64 `json:"reward"`
	Updated bool    `json:"updated"`
}
