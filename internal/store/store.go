// Package store declares the recommendation engine's only dependency on
// persistence. Every component talks to this interface, never to pgx or
// redis directly, mirroring the teacher's DatabaseQuerier abstraction in
// recommendation_algorithms.go.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// TimeWindow bounds a read over the interaction log.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// InteractionFilter narrows ReadInteractions; a zero value matches every
// interaction in the window, absorbed by a training run or not.
type InteractionFilter struct {
	ExcludeAbsorbed bool
	Kind            *models.InteractionKind
}

// BucketFunc computes a fresh group assignment; it is invoked by
// ABGetOrInsertAssignment only when no row exists yet, so the store never
// needs to know how bucketing works.
type BucketFunc func() models.ABGroup

// MutateFunc mutates a BanditStat in place under the store's per-item
// serialization; returning an error aborts the write.
type MutateFunc func(*models.BanditStat) error

type Store interface {
	LoadProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	LoadItems(ctx context.Context) ([]models.Item, error)
	LoadItemEmbedding(ctx context.Context, itemID uuid.UUID) ([]float32, error)

	GetCache(ctx context.Context, userID uuid.UUID) (*models.CachedRecs, error)
	PutCache(ctx context.Context, payload *models.CachedRecs) error
	InvalidateAllCaches(ctx context.Context) error

	GetBandit(ctx context.Context, itemID uuid.UUID) (*models.BanditStat, error)
	UpsertBandit(ctx context.Context, itemID uuid.UUID, mutate MutateFunc) (*models.BanditStat, error)
	BatchUpdateBandits(ctx context.Context, deltas map[uuid.UUID][2]float64) error
	IncrementImpression(ctx context.Context, itemID uuid.UUID) error
	IncrementClick(ctx context.Context, itemID uuid.UUID) error

	InsertInteraction(ctx context.Context, row *models.Interaction) error
	ReadInteractions(ctx context.Context, window TimeWindow, filter InteractionFilter) ([]models.Interaction, error)
	MarkAbsorbed(ctx context.Context, ids []uuid.UUID, runID uuid.UUID) error
	InsertResult(ctx context.Context, row *models.RecommendationResult) error
	ReadResults(ctx context.Context, window TimeWindow) ([]models.RecommendationResult, error)

	ABGetActiveConfig(ctx context.Context) (*models.ABTestConfig, error)
	ABCreateConfig(ctx context.Context, cfg *models.ABTestConfig) error
	ABEndConfig(ctx context.Context, testID string, winner *models.ABGroup) error
	ABGetOrInsertAssignment(ctx context.Context, testID string, userID uuid.UUID, bucketFn BucketFunc) (*models.ABAssignment, error)
	ABInsertResult(ctx context.Context, row *models.TestResult) error
	ABGetResult(ctx context.Context, testID string) (*models.TestResult, error)

	InsertTrainingRun(ctx context.Context, run *models.TrainingRun) error

	Close() error
}
