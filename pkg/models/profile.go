package models

import "github.com/google/uuid"

// UserProfile is an immutable-per-request snapshot of the attributes used
// to build the similarity query string in the retriever.
type UserProfile struct {
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	InterestTags  []string        `json:"interest_tags" db:"interest_tags"`
	Languages     []string        `json:"languages" db:"languages"`
	Frameworks    []string        `json:"frameworks" db:"frameworks"`
	LearningGoals string          `json:"learning_goals,omitempty" db:"learning_goals"`
	SkillLevel    ComplexityLevel `json:"skill_level,omitempty" db:"skill_level"`
}
