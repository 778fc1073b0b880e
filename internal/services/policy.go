package services

import (
	"context"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// BanditPolicy implements the C4 contract: Thompson sampling blended
// with similarity, plus a flat exploration rate on top of the draw.
type BanditPolicy struct {
	bandit *BanditStore
	cfg    config.BanditConfig
	logger *logrus.Logger
}

func NewBanditPolicy(bandit *BanditStore, cfg config.BanditConfig, logger *logrus.Logger) *BanditPolicy {
	return &BanditPolicy{bandit: bandit, cfg: cfg, logger: logger}
}

// Rerank scores each candidate against a freshly drawn Beta posterior.
// rng is request-local: callers that need reproducible orderings (tests,
// replay debugging) pass a seeded *rand.Rand; production callers may
// pass rand.New(rand.NewSource(entropy)) per request so concurrent
// requests never share mutable PRNG state.
func (p *BanditPolicy) Rerank(ctx context.Context, candidates []models.Candidate, k int, rng *rand.Rand) []models.Ranked {
	ranked := make([]models.Ranked, 0, len(candidates))

	for _, c := range candidates {
		stat, err := p.bandit.Get(ctx, c.ItemID)
		if err != nil {
			p.logger.WithError(err).WithField("item_id", c.ItemID).Warn("bandit lookup failed mid-rerank, falling back to similarity order")
			ranked = append(ranked, models.Ranked{
				ItemID:     c.ItemID,
				Similarity: c.Similarity,
				Score:      c.Similarity,
				Method:     models.MethodSimilarity,
			})
			continue
		}

		theta := sampleBeta(stat.Alpha, stat.Beta, rng)
		u := rng.Float64()

		var r models.Ranked
		if u < p.cfg.ExplorationRate {
			r = models.Ranked{ItemID: c.ItemID, Similarity: c.Similarity, Score: theta, Method: models.MethodRLExplore}
		} else {
			score := p.cfg.SimilarityWeight*c.Similarity + p.cfg.BanditWeight*theta
			r = models.Ranked{ItemID: c.ItemID, Similarity: c.Similarity, Score: score, Method: models.MethodRLExploit}
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return ranked[i].ItemID.String() < ranked[j].ItemID.String()
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

func sampleBeta(alpha, beta float64, rng *rand.Rand) float64 {
	dist := distuv.Beta{Alpha: alpha, Beta: beta, Src: rng}
	return dist.Rand()
}
