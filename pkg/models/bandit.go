package models

import (
	"time"

	"github.com/google/uuid"
)

// AlphaPrior and BetaPrior are the Beta-distribution priors every
// BanditStat starts from. A fresh item is exactly as likely to succeed
// as fail until evidence pulls it one way or the other.
const (
	AlphaPrior = 2.0
	BetaPrior  = 2.0
)

// BanditStat holds the per-item Beta-distribution posterior consumed by
// Thompson sampling. EstimatedQuality and TotalSamples are methods derived
// from (Alpha, Beta) on each call, never stored independently.
type BanditStat struct {
	ItemID            uuid.UUID `json:"item_id" db:"item_id"`
	Alpha             float64   `json:"alpha" db:"alpha"`
	Beta              float64   `json:"beta" db:"beta"`
	TotalClicks       int64     `json:"total_clicks" db:"total_clicks"`
	TotalImpressions  int64     `json:"total_impressions" db:"total_impressions"`
	Version           int64     `json:"-" db:"version"`
	Frozen            bool      `json:"frozen" db:"frozen"`
	LastUpdated       time.Time `json:"last_updated" db:"last_updated"`
}

// EstimatedQuality is the posterior mean alpha/(alpha+beta).
func (b *BanditStat) EstimatedQuality() float64 {
	if b.Alpha+b.Beta == 0 {
		return 0
	}
	return b.Alpha / (b.Alpha + b.Beta)
}

// TotalSamples is the non-negative count of absorbed reward-mass units:
// alpha+beta minus the priors.
func (b *BanditStat) TotalSamples() float64 {
	return b.Alpha + b.Beta - AlphaPrior - BetaPrior
}

// NewBanditStat returns a fresh stat seeded at the priors.
func NewBanditStat(itemID uuid.UUID) *BanditStat {
	return &BanditStat{
		ItemID: itemID,
		Alpha:  AlphaPrior,
		Beta:   BetaPrior,
	}
}
