package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// BanditStore is the thin domain wrapper around the persistence-layer
// CAS operations: it translates reward deltas into the (alpha, beta)
// vocabulary the policy and trainer think in, while the actual
// serialization-per-item guarantee lives in store.Postgres.UpsertBandit.
type BanditStore struct {
	store  store.Store
	logger *logrus.Logger
}

func NewBanditStore(s store.Store, logger *logrus.Logger) *BanditStore {
	return &BanditStore{store: s, logger: logger}
}

func (b *BanditStore) Get(ctx context.Context, itemID uuid.UUID) (*models.BanditStat, error) {
	return b.store.GetBandit(ctx, itemID)
}

// Update applies a single (deltaAlpha, deltaBeta) pair atomically.
func (b *BanditStore) Update(ctx context.Context, itemID uuid.UUID, deltaAlpha, deltaBeta float64) (*models.BanditStat, error) {
	if deltaAlpha < 0 || deltaBeta < 0 {
		return nil, errkind.New(errkind.Validation, "bandit deltas must be non-negative")
	}
	return b.store.UpsertBandit(ctx, itemID, func(s *models.BanditStat) error {
		s.Alpha += deltaAlpha
		s.Beta += deltaBeta
		return nil
	})
}

// BatchUpdate submits every item's (deltaAlpha, deltaBeta) in one
// transaction; a partial failure aborts the whole batch, per the C3
// contract.
func (b *BanditStore) BatchUpdate(ctx context.Context, deltas map[uuid.UUID][2]float64) error {
	return b.store.BatchUpdateBandits(ctx, deltas)
}

func (b *BanditStore) IncrementImpression(ctx context.Context, itemID uuid.UUID) error {
	return b.store.IncrementImpression(ctx, itemID)
}

func (b *BanditStore) IncrementClick(ctx context.Context, itemID uuid.UUID) error {
	return b.store.IncrementClick(ctx, itemID)
}
