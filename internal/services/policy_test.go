package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

func testBanditConfig() config.BanditConfig {
	return config.BanditConfig{
		AlphaPrior:       2.0,
		BetaPrior:        2.0,
		SimilarityWeight: 0.6,
		BanditWeight:     0.4,
		ExplorationRate:  0.15,
		OverfetchFactor:  3,
	}
}

func TestBanditPolicy_Rerank_DeterministicWithSeededPRNG(t *testing.T) {
	fs := newFakeStore()
	bandit := NewBanditStore(fs, logrus.New())
	policy := NewBanditPolicy(bandit, testBanditConfig(), logrus.New())

	candidates := make([]models.Candidate, 12)
	for i := range candidates {
		candidates[i] = models.Candidate{ItemID: uuid.New(), Similarity: float64(12-i) / 12.0}
	}

	first := policy.Rerank(context.Background(), candidates, 12, rand.New(rand.NewSource(42)))
	second := policy.Rerank(context.Background(), candidates, 12, rand.New(rand.NewSource(42)))

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ItemID, second[i].ItemID)
		assert.Equal(t, first[i].Method, second[i].Method)
	}
}

func TestBanditPolicy_Rerank_ExploreFractionIsApproximatelyEpsilon(t *testing.T) {
	fs := newFakeStore()
	bandit := NewBanditStore(fs, logrus.New())
	policy := NewBanditPolicy(bandit, testBanditConfig(), logrus.New())

	candidates := make([]models.Candidate, 12)
	for i := range candidates {
		candidates[i] = models.Candidate{ItemID: uuid.New(), Similarity: float64(12-i) / 12.0}
	}

	const seeds = 500
	explore := 0
	total := 0
	for s := int64(0); s < seeds; s++ {
		ranked := policy.Rerank(context.Background(), candidates, 12, rand.New(rand.NewSource(s)))
		for _, r := range ranked {
			total++
			if r.Method == models.MethodRLExplore {
				explore++
			}
		}
	}

	fraction := float64(explore) / float64(total)
	assert.InDelta(t, 0.15, fraction, 0.03)
}

func TestBanditPolicy_Rerank_TruncatesToK(t *testing.T) {
	fs := newFakeStore()
	bandit := NewBanditStore(fs, logrus.New())
	policy := NewBanditPolicy(bandit, testBanditConfig(), logrus.New())

	candidates := []models.Candidate{
		{ItemID: uuid.New(), Similarity: 0.9},
		{ItemID: uuid.New(), Similarity: 0.5},
		{ItemID: uuid.New(), Similarity: 0.1},
	}
	ranked := policy.Rerank(context.Background(), candidates, 2, rand.New(rand.NewSource(7)))
	assert.Len(t, ranked, 2)
}
