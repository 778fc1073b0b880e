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

func testABTestingConfig() config.ABTestingConfig {
	return config.ABTestingConfig{MinSampleSize: 100, SignificanceLevel: 0.05, MinRelativeEffect: 0.05}
}

// buildGroup synthesizes one group's worth of a test window: one
// RecommendationResult (stamped with the group, the way C5's pipeline
// stamps it at serve time) per impression, plus a click Interaction for
// the first `clicks` of those users, pre-seeding the fake store's
// assignment table so Evaluate's internal lookup resolves each
// synthetic user to the intended group.
func buildGroup(fs *fakeStore, testID string, group models.ABGroup, impressions, clicks int) ([]models.RecommendationResult, []models.Interaction) {
	var results []models.RecommendationResult
	var interactions []models.Interaction
	g := group
	for i := 0; i < impressions; i++ {
		userID := uuid.New()
		fs.abAssign[testID+"|"+userID.String()] = &models.ABAssignment{TestID: testID, UserID: userID.String(), Group: group}
		results = append(results, models.RecommendationResult{ID: uuid.New(), UserID: userID, ItemID: uuid.New(), ABGroup: &g, CreatedAt: time.Now()})
		if i < clicks {
			interactions = append(interactions, models.Interaction{ID: uuid.New(), UserID: userID, ItemID: uuid.New(), Kind: models.KindClick, Timestamp: time.Now()})
		}
	}
	return results, interactions
}

func TestABSignificanceService_Evaluate_SignificantDifferenceDeclaresWinner(t *testing.T) {
	fs := newFakeStore()
	svc := NewABSignificanceService(fs, testABTestingConfig(), NewRewardCalculator(logrus.New()), logrus.New())

	// n1=14964, x1=778 (control, CTR~0.052); n2=15468, x2=1051 (treatment, CTR~0.068).
	controlResults, controlInteractions := buildGroup(fs, "exp_1", models.GroupControl, 14964, 778)
	treatmentResults, treatmentInteractions := buildGroup(fs, "exp_1", models.GroupTreatment, 15468, 1051)
	results := append(controlResults, treatmentResults...)
	interactions := append(controlInteractions, treatmentInteractions...)

	result, err := svc.Evaluate(context.Background(), &models.ABTestConfig{TestID: "exp_1", ControlPct: 50}, results, interactions, time.Now())

	require.NoError(t, err)
	assert.False(t, result.InsufficientSample)
	assert.True(t, result.Significant)
	require.NotNil(t, result.Winner)
	assert.Equal(t, models.GroupTreatment, *result.Winner)
	assert.Less(t, result.P, 0.05)
	assert.InDelta(t, 5.82, result.Z, 0.1)
	assert.InDelta(t, 0.308, result.RelativeEffect, 0.01)
	assert.Equal(t, result.Treatment.Interactions, result.Treatment.Clicks)
	assert.InDelta(t, result.Treatment.Engagement, result.Treatment.CTR, 1e-9)
	assert.Greater(t, result.Treatment.AvgReward, 0.0)
}

func TestABSignificanceService_Evaluate_InsufficientSampleWithheldDecision(t *testing.T) {
	fs := newFakeStore()
	svc := NewABSignificanceService(fs, testABTestingConfig(), NewRewardCalculator(logrus.New()), logrus.New())

	// n1=45, x1=5 (control); n2=52, x2=8 (treatment) — both below min_sample_size.
	controlResults, controlInteractions := buildGroup(fs, "exp_1", models.GroupControl, 45, 5)
	treatmentResults, treatmentInteractions := buildGroup(fs, "exp_1", models.GroupTreatment, 52, 8)
	results := append(controlResults, treatmentResults...)
	interactions := append(controlInteractions, treatmentInteractions...)

	result, err := svc.Evaluate(context.Background(), &models.ABTestConfig{TestID: "exp_1", ControlPct: 50}, results, interactions, time.Now())

	require.NoError(t, err)
	assert.True(t, result.InsufficientSample)
	assert.False(t, result.Significant)
	assert.Nil(t, result.Winner)
	assert.Equal(t, "insufficient_sample", result.Recommendation)
}

func TestProportionZTest_ZeroTrialsIsDegenerate(t *testing.T) {
	z, p := proportionZTest(0, 0, 0, 0)
	assert.Equal(t, 0.0, z)
	assert.Equal(t, 1.0, p)
}

func TestNormalCDF_SymmetricAroundZero(t *testing.T) {
	assert.InDelta(t, 0.5, normalCDF(0), 0.001)
	assert.InDelta(t, 1.0-normalCDF(2), normalCDF(-2), 1e-9)
}
