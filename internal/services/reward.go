package services

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// baseReward is the kind-indexed reward table; impression maps to 0, and
// a kind missing from the table is logged and rewarded 0 by Reward.
var baseReward = map[models.InteractionKind]float64{
	models.KindClick:       5.0,
	models.KindBookmark:    10.0,
	models.KindGitHubVisit: 3.0,
	models.KindHoverLong:   0.8,
	models.KindImpression:  0.0,
	models.KindQuickExit:   -2.0,
	models.KindUnbookmark:  -3.0,
	models.KindFeedback5:   10.0,
	models.KindFeedback4:   5.0,
	models.KindFeedback3:   0.0,
	models.KindFeedback2:   -2.0,
	models.KindFeedback1:   -5.0,
}

// RewardCalculator is the pure function mapping an interaction to a
// scalar reward. It carries no state and no I/O.
type RewardCalculator struct {
	logger *logrus.Logger
}

func NewRewardCalculator(logger *logrus.Logger) *RewardCalculator {
	return &RewardCalculator{logger: logger}
}

// Reward applies the position and duration multipliers. decayDays, when
// non-nil, enables the offline time-decay adjustment; the real-time
// ingest path always passes nil.
func (r *RewardCalculator) Reward(interaction models.Interaction, decayDays *float64) float64 {
	base, ok := baseReward[interaction.Kind]
	if !ok {
		r.logger.WithField("kind", interaction.Kind).Warn("unknown interaction kind, reward defaulted to 0")
		return 0
	}
	if base == 0 {
		return 0
	}

	reward := base * positionMultiplier(interaction.Position)

	// A recorded duration of zero means none was actually observed (the
	// field is present but unset), so it falls through to the neutral
	// multiplier the same as a nil duration would.
	if interaction.DurationS != nil && *interaction.DurationS > 0 {
		reward *= durationMultiplier(*interaction.DurationS)
	}

	if decayDays != nil {
		reward *= timeDecay(*decayDays)
	}

	return reward
}

func positionMultiplier(position int) float64 {
	gap := 12 - position
	if gap < 0 {
		gap = 0
	}
	return 1.0 + 0.1*float64(gap)
}

func durationMultiplier(durationS float64) float64 {
	switch {
	case durationS >= 60:
		return 1.5
	case durationS < 10:
		return 0.5
	default:
		return 1.0
	}
}

func timeDecay(daysOld float64) float64 {
	return math.Exp(-math.Ln2 * daysOld / 7.0)
}
