package services

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

func durationPtr(v float64) *float64 { return &v }

func TestRewardCalculator_Reward(t *testing.T) {
	calc := NewRewardCalculator(logrus.New())

	tests := []struct {
		name   string
		in     models.Interaction
		expect float64
	}{
		{
			name:   "click at position 3 with no real duration",
			in:     models.Interaction{Kind: models.KindClick, Position: 3, DurationS: durationPtr(0), Timestamp: time.Now()},
			expect: 9.5,
		},
		{
			name:   "bookmark at position 1 with long duration",
			in:     models.Interaction{Kind: models.KindBookmark, Position: 1, DurationS: durationPtr(120), Timestamp: time.Now()},
			expect: 31.5,
		},
		{
			name:   "quick exit at position 3",
			in:     models.Interaction{Kind: models.KindQuickExit, Position: 3, Timestamp: time.Now()},
			expect: -3.8,
		},
		{
			name:   "impression is always neutral",
			in:     models.Interaction{Kind: models.KindImpression, Position: 1},
			expect: 0,
		},
		{
			name:   "unknown kind defaults to zero",
			in:     models.Interaction{Kind: "made_up", Position: 1},
			expect: 0,
		},
		{
			name:   "position beyond 12 floors the multiplier at 1.0",
			in:     models.Interaction{Kind: models.KindGitHubVisit, Position: 50},
			expect: 3.0,
		},
		{
			name:   "short click duration halves the reward",
			in:     models.Interaction{Kind: models.KindClick, Position: 12, DurationS: durationPtr(5)},
			expect: 2.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Reward(tt.in, nil)
			assert.InDelta(t, tt.expect, got, 0.0001)
		})
	}
}

func TestRewardCalculator_Reward_TimeDecay(t *testing.T) {
	calc := NewRewardCalculator(logrus.New())
	days := 7.0
	got := calc.Reward(models.Interaction{Kind: models.KindClick, Position: 1, DurationS: durationPtr(0)}, &days)
	// One half-life at 7 days halves the base*position reward.
	assert.InDelta(t, 5.25, got, 0.0001)
}
