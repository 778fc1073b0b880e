package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// Trainer implements the C6 batch retraining contract: replay a window
// of interactions, aggregate positive/negative reward mass per item, and
// submit a single smoothed-learning-rate batch update.
type Trainer struct {
	store   store.Store
	bandit  *BanditStore
	reward  *RewardCalculator
	cfg     config.TrainingConfig
	logger  *logrus.Logger
	nowFunc func() time.Time
}

func NewTrainer(s store.Store, bandit *BanditStore, reward *RewardCalculator, cfg config.TrainingConfig, logger *logrus.Logger) *Trainer {
	return &Trainer{store: s, bandit: bandit, reward: reward, cfg: cfg, logger: logger, nowFunc: time.Now}
}

// Train replays [now-days, now], computing decayed rewards per
// interaction, and applies lr * (pos, neg) per item in one batch. Absorbed
// interactions are excluded from the read so a second call over the same
// window is a no-op, satisfying the idempotent-batch property.
func (t *Trainer) Train(ctx context.Context, days int, learningRate float64) (*models.TrainingSummary, error) {
	if days <= 0 {
		return nil, errkind.New(errkind.Validation, "days must be positive")
	}
	if learningRate == 0 {
		learningRate = t.cfg.SmoothedLearningRate
	}

	now := t.nowFunc()
	window := store.TimeWindow{From: now.AddDate(0, 0, -days), To: now}

	interactions, err := t.store.ReadInteractions(ctx, window, store.InteractionFilter{ExcludeAbsorbed: true})
	if err != nil {
		run := &models.TrainingRun{DaysProcessed: days, Succeeded: false, FailureReason: err.Error(), Timestamp: now}
		_ = t.store.InsertTrainingRun(ctx, run)
		return nil, err
	}

	type posNeg struct{ pos, neg float64 }
	byItem := map[uuid.UUID]*posNeg{}
	ids := make([]uuid.UUID, 0, len(interactions))

	for _, in := range interactions {
		daysOld := now.Sub(in.Timestamp).Hours() / 24
		r := t.reward.Reward(in, &daysOld)
		pn, ok := byItem[in.ItemID]
		if !ok {
			pn = &posNeg{}
			byItem[in.ItemID] = pn
		}
		if r > 0 {
			pn.pos += r
		} else if r < 0 {
			pn.neg += -r
		}
		ids = append(ids, in.ID)
	}

	deltas := make(map[uuid.UUID][2]float64, len(byItem))
	before := map[uuid.UUID]float64{}
	for itemID, pn := range byItem {
		if stat, err := t.bandit.Get(ctx, itemID); err == nil {
			before[itemID] = stat.EstimatedQuality()
		}
		deltas[itemID] = [2]float64{pn.pos * learningRate, pn.neg * learningRate}
	}

	runID := uuid.New()
	if len(deltas) > 0 {
		if err := t.bandit.BatchUpdate(ctx, deltas); err != nil {
			run := &models.TrainingRun{RunID: runID, DaysProcessed: days, Interactions: len(interactions),
				Succeeded: false, FailureReason: err.Error(), Timestamp: now}
			_ = t.store.InsertTrainingRun(ctx, run)
			return nil, err
		}
	}

	if err := t.store.MarkAbsorbed(ctx, ids, runID); err != nil {
		t.logger.WithError(err).Warn("failed to mark interactions absorbed after successful batch update")
	}

	var deltas2 []models.ItemQualityDelta
	for itemID := range byItem {
		stat, err := t.bandit.Get(ctx, itemID)
		if err != nil {
			continue
		}
		deltas2 = append(deltas2, models.ItemQualityDelta{
			ItemID: itemID,
			Before: before[itemID],
			After:  stat.EstimatedQuality(),
		})
	}

	run := &models.TrainingRun{
		RunID:           runID,
		DaysProcessed:   days,
		Interactions:    len(interactions),
		ProjectsUpdated: len(byItem),
		Succeeded:       true,
		PostMetrics:     deltas2,
		Timestamp:       now,
	}
	if err := t.store.InsertTrainingRun(ctx, run); err != nil {
		t.logger.WithError(err).Warn("failed to write training run audit log")
	}

	return &models.TrainingSummary{
		RunID:           runID,
		DaysProcessed:   days,
		Interactions:    len(interactions),
		ProjectsUpdated: len(byItem),
	}, nil
}
