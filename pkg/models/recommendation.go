package models

import (
	"time"

	"github.com/google/uuid"
)

// Method is a closed enumeration of how a recommendation's score was
// produced; handlers and persistence switch on it exhaustively.
type Method string

const (
	MethodSimilarity Method = "similarity"
	MethodRLExploit  Method = "rl_exploit"
	MethodRLExplore  Method = "rl_explore"
	MethodDegraded   Method = "degraded"
)

// Candidate is an intermediate (item_id, similarity) pair produced by the
// retriever, before the bandit policy reranks it.
type Candidate struct {
	ItemID     uuid.UUID
	Similarity float64
}

// Ranked is a (item_id, score, method) triple produced by the bandit
// policy's rerank step.
type Ranked struct {
	ItemID     uuid.UUID
	Similarity float64
	Score      float64
	Method     Method
}

// RecommendationResult is the per-impression row persisted by the
// pipeline at response time.
type RecommendationResult struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	ItemID       uuid.UUID `json:"item_id" db:"item_id"`
	RankPosition int       `json:"rank_position" db:"rank_position"`
	Similarity   float64   `json:"similarity" db:"similarity"`
	BanditScore  *float64  `json:"bandit_score,omitempty" db:"bandit_score"`
	Method       Method    `json:"method" db:"method"`
	ABGroup      *ABGroup  `json:"ab_group,omitempty" db:"ab_group"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RecommendationItem is the JSON shape returned to external callers.
type RecommendationItem struct {
	ItemID      uuid.UUID `json:"item_id"`
	Rank        int       `json:"rank"`
	Similarity  float64   `json:"similarity"`
	BanditScore *float64  `json:"bandit_score,omitempty"`
	Method      Method    `json:"method"`
}

// RecommendationRequest is the query parsed from the HTTP surface.
type RecommendationRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	K      int       `json:"k" validate:"min=1,max=100"`
	Offset int       `json:"offset" validate:"min=0"`
}

// RecommendationResponse wraps the ordered recommendation list.
type RecommendationResponse struct {
	UserID          uuid.UUID             `json:"user_id"`
	Recommendations []RecommendationItem  `json:"recommendations"`
	GeneratedAt     time.Time             `json:"generated_at"`
	CacheHit        bool                  `json:"cache_hit"`
}

// CachedRecs is the cache entry for a user's similarity/rerank output,
// invalidated whenever the stored ProfileHash no longer matches the
// profile's current digest.
type CachedRecs struct {
	UserID        uuid.UUID   `json:"user_id"`
	ProfileHash   string      `json:"profile_hash"`
	SimilarityList []Candidate `json:"similarity_list"`
	RLList        []Ranked    `json:"rl_list,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
