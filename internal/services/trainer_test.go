package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

func TestTrainer_Train_IsIdempotentOverAbsorbedWindow(t *testing.T) {
	fs := newFakeStore()
	logger := logrus.New()
	bandit := NewBanditStore(fs, logger)
	reward := NewRewardCalculator(logger)
	cfg := config.TrainingConfig{DefaultDays: 7, SmoothedLearningRate: 0.5}
	trainer := NewTrainer(fs, bandit, reward, cfg, logger)
	trainer.nowFunc = func() time.Time { return time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC) }

	itemID := uuid.New()
	fs.interacts = []models.Interaction{
		{ID: uuid.New(), ItemID: itemID, Kind: models.KindClick, Position: 1, Timestamp: trainer.nowFunc().AddDate(0, 0, -1)},
	}

	first, err := trainer.Train(context.Background(), 7, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ProjectsUpdated)

	statAfterFirst, err := bandit.Get(context.Background(), itemID)
	require.NoError(t, err)

	second, err := trainer.Train(context.Background(), 7, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ProjectsUpdated)

	statAfterSecond, err := bandit.Get(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, statAfterFirst.Alpha, statAfterSecond.Alpha)
	assert.Equal(t, statAfterFirst.Beta, statAfterSecond.Beta)

	assert.Len(t, fs.runs, 2)
}

func TestTrainer_Train_RejectsNonPositiveDays(t *testing.T) {
	fs := newFakeStore()
	logger := logrus.New()
	trainer := NewTrainer(fs, NewBanditStore(fs, logger), NewRewardCalculator(logger),
		config.TrainingConfig{SmoothedLearningRate: 0.5}, logger)

	_, err := trainer.Train(context.Background(), 0, 0.5)
	assert.Error(t, err)
}
