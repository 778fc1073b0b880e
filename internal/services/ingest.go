package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// IngestService implements C9, the single entry point external
// collaborators use to record an interaction. Record runs the
// reward-and-update chain with time decay off, the real-time path, as
// opposed to the batch path owned by Trainer.
type IngestService struct {
	store  store.Store
	bandit *BanditStore
	reward *RewardCalculator
	logger *logrus.Logger
}

func NewIngestService(s store.Store, bandit *BanditStore, reward *RewardCalculator, logger *logrus.Logger) *IngestService {
	return &IngestService{store: s, bandit: bandit, reward: reward, logger: logger}
}

// Record persists the interaction, computes its immediate reward, and
// applies the corresponding bandit delta plus counter bumps. Step order
// matches the contract: persist first, then update, so a crash between
// steps never loses the interaction row itself.
func (s *IngestService) Record(ctx context.Context, interaction *models.Interaction) (float64, error) {
	if err := s.store.InsertInteraction(ctx, interaction); err != nil {
		return 0, err
	}

	r := s.reward.Reward(*interaction, nil)

	switch {
	case r > 0:
		if _, err := s.bandit.Update(ctx, interaction.ItemID, r, 0); err != nil {
			s.logger.WithError(err).WithField("item_id", interaction.ItemID).Warn("failed to apply positive bandit update")
		}
	case r < 0:
		if _, err := s.bandit.Update(ctx, interaction.ItemID, 0, -r); err != nil {
			s.logger.WithError(err).WithField("item_id", interaction.ItemID).Warn("failed to apply negative bandit update")
		}
	}

	switch interaction.Kind {
	case models.KindImpression:
		if err := s.store.IncrementImpression(ctx, interaction.ItemID); err != nil {
			s.logger.WithError(err).Warn("failed to bump impression counter")
		}
	case models.KindClick:
		if err := s.store.IncrementClick(ctx, interaction.ItemID); err != nil {
			s.logger.WithError(err).Warn("failed to bump click counter")
		}
	}

	return r, nil
}
