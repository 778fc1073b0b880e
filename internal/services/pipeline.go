package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// Pipeline implements the C5 contract: orchestrate the retriever and
// policy, tag every result with its method, persist impressions, and
// degrade gracefully when either stage comes back empty or fails.
type Pipeline struct {
	store      store.Store
	retriever  *SimilarityRetriever
	policy     *BanditPolicy
	banditCfg  config.BanditConfig
	pipelineCfg config.PipelineConfig
	logger     *logrus.Logger
}

func NewPipeline(s store.Store, retriever *SimilarityRetriever, policy *BanditPolicy, banditCfg config.BanditConfig, pipelineCfg config.PipelineConfig, logger *logrus.Logger) *Pipeline {
	return &Pipeline{store: s, retriever: retriever, policy: policy, banditCfg: banditCfg, pipelineCfg: pipelineCfg, logger: logger}
}

// Recommend implements recommend(user_id, k, use_rl, offset). group, when
// non-nil, is the caller's already-resolved A/B group for this user and is
// stamped onto every persisted RecommendationResult so C8 can aggregate
// impressions per group straight from that table.
func (p *Pipeline) Recommend(ctx context.Context, userID uuid.UUID, k int, useRL bool, offset int, group *models.ABGroup) ([]models.RecommendationItem, error) {
	profile, err := p.store.LoadProfile(ctx, userID)
	if err != nil {
		if errkind.Is(err, errkind.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	profileHash := ProfileHash(profile)

	overfetch := p.banditCfg.OverfetchFactor * k
	need := k + offset + overfetch
	if need < overfetch {
		need = overfetch
	}

	candidates, err := p.fetchCandidates(ctx, profile, profileHash, need)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var items []models.RecommendationItem
	switch {
	case !useRL:
		items = similarityOnly(candidates)
	default:
		items = p.rerankWithFallback(ctx, candidates, k+offset)
	}

	if offset >= len(items) {
		return nil, nil
	}
	end := offset + k
	if end > len(items) {
		end = len(items)
	}
	page := items[offset:end]

	p.persistResults(ctx, userID, page, group)
	p.fireImpressions(ctx, page)

	return page, nil
}

func (p *Pipeline) fetchCandidates(ctx context.Context, profile *models.UserProfile, profileHash string, k int) ([]models.Candidate, error) {
	if cached, err := p.store.GetCache(ctx, profile.UserID); err == nil && cached.ProfileHash == profileHash {
		return cached.SimilarityList, nil
	}

	candidates, err := p.retriever.Candidates(ctx, profile, k)
	if err != nil {
		return nil, err
	}

	_ = p.store.PutCache(ctx, &models.CachedRecs{
		UserID:         profile.UserID,
		ProfileHash:    profileHash,
		SimilarityList: candidates,
		UpdatedAt:      time.Now(),
	})

	return candidates, nil
}

func similarityOnly(candidates []models.Candidate) []models.RecommendationItem {
	out := make([]models.RecommendationItem, len(candidates))
	for i, c := range candidates {
		out[i] = models.RecommendationItem{
			ItemID:     c.ItemID,
			Rank:       i + 1,
			Similarity: c.Similarity,
			Method:     models.MethodSimilarity,
		}
	}
	return out
}

func (p *Pipeline) rerankWithFallback(ctx context.Context, candidates []models.Candidate, k int) []models.RecommendationItem {
	rng := rand.New(rand.NewSource(requestSeed()))
	ranked := p.policy.Rerank(ctx, candidates, k, rng)

	out := make([]models.RecommendationItem, len(ranked))
	for i, r := range ranked {
		score := r.Score
		out[i] = models.RecommendationItem{
			ItemID:      r.ItemID,
			Rank:        i + 1,
			Similarity:  r.Similarity,
			BanditScore: &score,
			Method:      r.Method,
		}
	}
	return out
}

// requestSeed is a package-level variable so a test can substitute a
// fixed seed; by default each request gets a time-derived seed, so two
// consecutive calls for the same user produce different orderings.
var requestSeed = func() int64 { return time.Now().UnixNano() }

func (p *Pipeline) persistResults(ctx context.Context, userID uuid.UUID, items []models.RecommendationItem, group *models.ABGroup) {
	for _, item := range items {
		row := &models.RecommendationResult{
			UserID:       userID,
			ItemID:       item.ItemID,
			RankPosition: item.Rank,
			Similarity:   item.Similarity,
			BanditScore:  item.BanditScore,
			Method:       item.Method,
			ABGroup:      group,
		}
		if err := p.store.InsertResult(ctx, row); err != nil {
			p.logger.WithError(err).WithField("user_id", userID).Warn("failed to persist recommendation result")
		}
	}
}

func (p *Pipeline) fireImpressions(ctx context.Context, items []models.RecommendationItem) {
	for _, item := range items {
		if err := p.store.IncrementImpression(ctx, item.ItemID); err != nil {
			p.logger.WithError(err).WithField("item_id", item.ItemID).Warn("failed to increment impression count")
		}
	}
}
