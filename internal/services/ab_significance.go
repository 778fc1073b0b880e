package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// ABSignificanceService implements C8: per-group metric aggregation, the
// two-proportion z-test on click-through rate, and the winner decision
// rule. The z-test and normal CDF approximation are the same formula the
// teacher used for its own experiment dashboards.
type ABSignificanceService struct {
	store  store.Store
	cfg    config.ABTestingConfig
	reward *RewardCalculator
	logger *logrus.Logger
}

func NewABSignificanceService(s store.Store, cfg config.ABTestingConfig, reward *RewardCalculator, logger *logrus.Logger) *ABSignificanceService {
	return &ABSignificanceService{store: s, cfg: cfg, reward: reward, logger: logger}
}

// Evaluate aggregates a test's window into control/treatment metrics,
// runs the two-proportion z-test on CTR, applies the decision rule, and
// persists the resulting TestResult. Impressions come from the
// recommendation_results rows C5 stamps with the serving-time group
// (organic impressions never produce an impression-kind Interaction
// row, only a BanditStat counter bump, so that table is the only
// faithful impression source). Interactions, by contrast, are every
// non-impression interaction row — clicks, bookmarks, and the rest —
// with each user's group resolved from the same assignment record C7
// writes at recommendation time, falling back to the deterministic
// bucket formula for a user who interacted without ever having been
// served a ranked recommendation (so no assignment row exists yet).
func (s *ABSignificanceService) Evaluate(ctx context.Context, cfg *models.ABTestConfig, results []models.RecommendationResult, interactions []models.Interaction, now time.Time) (*models.TestResult, error) {
	testID := cfg.TestID
	cache := map[uuid.UUID]models.ABGroup{}
	assignmentGroup := func(userID uuid.UUID) (models.ABGroup, bool) {
		if g, ok := cache[userID]; ok {
			return g, true
		}
		a, err := s.store.ABGetOrInsertAssignment(ctx, testID, userID, func() models.ABGroup {
			if store.Bucket(userID) < cfg.ControlPct {
				return models.GroupControl
			}
			return models.GroupTreatment
		})
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("failed to resolve ab assignment during evaluation")
			return "", false
		}
		cache[userID] = a.Group
		return a.Group, true
	}

	control := aggregate(results, interactions, models.GroupControl, assignmentGroup, s.reward)
	treatment := aggregate(results, interactions, models.GroupTreatment, assignmentGroup, s.reward)

	z, p := proportionZTest(treatment.Clicks, treatment.Impressions, control.Clicks, control.Impressions)

	insufficient := control.Impressions < int64(s.cfg.MinSampleSize) || treatment.Impressions < int64(s.cfg.MinSampleSize)

	var relativeEffect float64
	if control.CTR > 0 {
		relativeEffect = (treatment.CTR - control.CTR) / control.CTR
	}

	significant := !insufficient && p < s.cfg.SignificanceLevel && math.Abs(relativeEffect) >= s.cfg.MinRelativeEffect

	var winner *models.ABGroup
	recommendation := "continue collecting data"
	switch {
	case insufficient:
		recommendation = "insufficient_sample"
	case significant:
		g := models.GroupControl
		if treatment.CTR > control.CTR {
			g = models.GroupTreatment
		}
		winner = &g
		recommendation = "promote " + string(g)
	default:
		recommendation = "no significant difference"
	}

	result := &models.TestResult{
		TestID:             testID,
		Control:            control,
		Treatment:          treatment,
		Z:                  z,
		P:                  p,
		RelativeEffect:     relativeEffect,
		Significant:        significant,
		InsufficientSample: insufficient,
		Winner:             winner,
		Recommendation:     recommendation,
		ComputedAt:         now,
	}

	if err := s.store.ABInsertResult(ctx, result); err != nil {
		s.logger.WithError(err).Warn("failed to persist ab test result")
	}

	return result, nil
}

// EvaluateActive loads the active test config (if any), reads its full
// interaction window, and evaluates it. Returns (nil, nil) when there is
// no active test, mirroring the NotFound-as-absence convention used
// elsewhere in this package.
func (s *ABSignificanceService) EvaluateActive(ctx context.Context, now time.Time) (*models.TestResult, error) {
	cfg, err := s.store.ABGetActiveConfig(ctx)
	if err != nil {
		if errkind.Is(err, errkind.NotFound) {
			return nil, nil
		}
		return nil, err
	}

	to := now
	if cfg.End != nil && cfg.End.Before(to) {
		to = *cfg.End
	}
	window := store.TimeWindow{From: cfg.Start, To: to}

	results, err := s.store.ReadResults(ctx, window)
	if err != nil {
		return nil, err
	}

	interactions, err := s.store.ReadInteractions(ctx, window, store.InteractionFilter{})
	if err != nil {
		return nil, err
	}

	return s.Evaluate(ctx, cfg, results, interactions, now)
}

// aggregate computes one group's metrics for a test window. Impressions
// are counted straight off the recommendation_results rows stamped with
// that group at serve time; interactions (and reward) come from every
// non-impression Interaction row whose user resolves to that group.
func aggregate(results []models.RecommendationResult, interactions []models.Interaction, group models.ABGroup,
	assignmentGroup func(userID uuid.UUID) (models.ABGroup, bool), reward *RewardCalculator) models.GroupMetrics {

	m := models.GroupMetrics{Group: group}
	for _, r := range results {
		if r.ABGroup == nil || *r.ABGroup != group {
			continue
		}
		m.Impressions++
	}

	for _, in := range interactions {
		if in.Kind == models.KindImpression {
			continue
		}
		g, ok := assignmentGroup(in.UserID)
		if !ok || g != group {
			continue
		}
		m.Interactions++
		m.RewardSum += reward.Reward(in, nil)
		switch in.Kind {
		case models.KindClick:
			m.Clicks++
		case models.KindBookmark:
			m.Bookmarks++
		}
	}

	if m.Impressions > 0 {
		m.CTR = float64(m.Clicks) / float64(m.Impressions)
		m.Engagement = float64(m.Interactions) / float64(m.Impressions)
	}
	if m.Interactions > 0 {
		m.AvgReward = m.RewardSum / float64(m.Interactions)
	}
	return m
}

// proportionZTest computes the two-proportion z-test comparing the
// treatment click-through rate against the control click-through rate.
func proportionZTest(successes1, trials1, successes2, trials2 int64) (z, pValue float64) {
	if trials1 == 0 || trials2 == 0 {
		return 0, 1.0
	}

	p1 := float64(successes1) / float64(trials1)
	p2 := float64(successes2) / float64(trials2)
	pPool := float64(successes1+successes2) / float64(trials1+trials2)

	se := math.Sqrt(pPool * (1 - pPool) * (1.0/float64(trials1) + 1.0/float64(trials2)))
	if se == 0 {
		return 0, 1.0
	}

	z = (p1 - p2) / se
	pValue = 2.0 * (1.0 - normalCDF(math.Abs(z)))
	if pValue < 0 {
		pValue = 0
	}
	if pValue > 1 {
		pValue = 1
	}
	return z, pValue
}

// normalCDF is the standard normal cumulative distribution function,
// computed as 0.5*(1+erf(x/sqrt(2))) with the Abramowitz-and-Stegun
// approximation to erf.
func normalCDF(x float64) float64 {
	if x < 0 {
		return 1.0 - normalCDF(-x)
	}
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)
	xs := x / math.Sqrt2
	t := 1.0 / (1.0 + p*xs)
	erf := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-xs*xs)
	return 0.5 * (1.0 + erf)
}
