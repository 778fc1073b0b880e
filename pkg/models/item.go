package models

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingDim is the fixed dimensionality every Embedding and Encoder
// output must satisfy.
const EmbeddingDim = 384

// ComplexityLevel mirrors the skill levels a UserProfile can declare.
type ComplexityLevel string

const (
	ComplexityBeginner     ComplexityLevel = "beginner"
	ComplexityIntermediate ComplexityLevel = "intermediate"
	ComplexityAdvanced     ComplexityLevel = "advanced"
)

func (c ComplexityLevel) Valid() bool {
	switch c {
	case ComplexityBeginner, ComplexityIntermediate, ComplexityAdvanced:
		return true
	default:
		return false
	}
}

// Item is a recommendable GitHub-style project. Ingested out-of-band;
// immutable from the recommendation engine's point of view.
type Item struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Title           string          `json:"title" db:"title"`
	Description     string          `json:"description" db:"description"`
	DomainTag       string          `json:"domain_tag" db:"domain_tag"`
	ComplexityLevel ComplexityLevel `json:"complexity_level" db:"complexity_level"`
	Embedding       []float32       `json:"-" db:"embedding"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
