package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/encoder"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{EmbeddingDim: models.EmbeddingDim}
}

func newTestPipeline(fs *fakeStore) *Pipeline {
	logger := logrus.New()
	retriever := NewSimilarityRetriever(fs, encoder.NewDeterministic(), logger)
	bandit := NewBanditStore(fs, logger)
	policy := NewBanditPolicy(bandit, testBanditConfig(), logger)
	return NewPipeline(fs, retriever, policy, testBanditConfig(), testPipelineConfig(), logger)
}

func seedItems(n int) []models.Item {
	items := make([]models.Item, n)
	for i := 0; i < n; i++ {
		emb := make([]float32, models.EmbeddingDim)
		emb[i%models.EmbeddingDim] = 1
		items[i] = models.Item{ID: uuid.New(), Title: "item", ComplexityLevel: models.ComplexityIntermediate, Embedding: emb}
	}
	return items
}

func TestPipeline_Recommend_ZeroCandidatesReturnsEmptyNoPersist(t *testing.T) {
	fs := newFakeStore()
	fs.profiles[uuid.Nil] = &models.UserProfile{UserID: uuid.Nil, InterestTags: []string{"go"}}
	pipeline := newTestPipeline(fs)

	items, err := pipeline.Recommend(context.Background(), uuid.Nil, 5, true, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, fs.results)
}

func TestPipeline_Recommend_RespectsKAndPersistsResults(t *testing.T) {
	fs := newFakeStore()
	userID := uuid.New()
	fs.profiles[userID] = &models.UserProfile{UserID: userID, InterestTags: []string{"go", "distributed_systems"}}
	fs.items = seedItems(20)

	pipeline := newTestPipeline(fs)
	group := models.GroupTreatment
	items, err := pipeline.Recommend(context.Background(), userID, 5, true, 0, &group)

	require.NoError(t, err)
	assert.LessOrEqual(t, len(items), 5)
	assert.Len(t, fs.results, len(items))
	for _, r := range fs.results {
		require.NotNil(t, r.ABGroup)
		assert.Equal(t, models.GroupTreatment, *r.ABGroup)
	}

	seen := map[uuid.UUID]bool{}
	for i, item := range items {
		assert.Equal(t, i+1, item.Rank)
		assert.False(t, seen[item.ItemID], "item_id must appear at most once")
		seen[item.ItemID] = true
	}
}

func TestPipeline_Recommend_SimilarityOnlyWhenRLDisabled(t *testing.T) {
	fs := newFakeStore()
	userID := uuid.New()
	fs.profiles[userID] = &models.UserProfile{UserID: userID, InterestTags: []string{"go"}}
	fs.items = seedItems(10)

	pipeline := newTestPipeline(fs)
	items, err := pipeline.Recommend(context.Background(), userID, 5, false, 0, nil)

	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, models.MethodSimilarity, item.Method)
		assert.Nil(t, item.BanditScore)
	}
}
