package models

import "time"

// ABGroup is a closed enumeration: a user is in exactly one group for a
// given active test.
type ABGroup string

const (
	GroupControl   ABGroup = "control"
	GroupTreatment ABGroup = "treatment"
)

// ABTestStatus is a closed enumeration; a test transitions
// active -> ended only, never back.
type ABTestStatus string

const (
	ABStatusActive ABTestStatus = "active"
	ABStatusPaused ABTestStatus = "paused"
	ABStatusEnded  ABTestStatus = "ended"
)

// ABTestConfig describes one rollout experiment. Invariant: at most one
// row with Status == active at a time.
type ABTestConfig struct {
	TestID     string       `json:"test_id" db:"test_id"`
	Name       string       `json:"name" db:"name"`
	Status     ABTestStatus `json:"status" db:"status"`
	ControlPct int          `json:"control_pct" db:"control_pct"`
	Start      time.Time    `json:"start" db:"start"`
	End        *time.Time   `json:"end,omitempty" db:"end"`
	Winner     *ABGroup     `json:"winner,omitempty" db:"winner"`
}

// ABAssignment is immutable once written; unique on (TestID, UserID).
type ABAssignment struct {
	TestID     string    `json:"test_id" db:"test_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Group      ABGroup   `json:"group" db:"group"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

// GroupMetrics is the per-group aggregation window computed by C8.
type GroupMetrics struct {
	Group        ABGroup `json:"group"`
	Impressions  int64   `json:"impressions"`
	Clicks       int64   `json:"clicks"`
	Bookmarks    int64   `json:"bookmarks"`
	Interactions int64   `json:"interactions"`
	RewardSum    float64 `json:"reward_sum"`
	CTR          float64 `json:"ctr"`
	Engagement   float64 `json:"engagement"`
	AvgReward    float64 `json:"avg_reward"`
}

// TestResult is the end-of-test significance verdict persisted by C8.
type TestResult struct {
	TestID            string        `json:"test_id" db:"test_id"`
	Control           GroupMetrics  `json:"control" db:"-"`
	Treatment         GroupMetrics  `json:"treatment" db:"-"`
	Z                 float64       `json:"z" db:"z"`
	P                 float64       `json:"p" db:"p"`
	RelativeEffect    float64       `json:"relative_effect" db:"relative_effect"`
	Significant       bool          `json:"significant" db:"significant"`
	InsufficientSample bool         `json:"insufficient_sample" db:"insufficient_sample"`
	Winner            *ABGroup      `json:"winner,omitempty" db:"winner"`
	Recommendation    string        `json:"recommendation" db:"recommendation"`
	ComputedAt        time.Time     `json:"computed_at" db:"computed_at"`
}

// ABStartRequest is the HTTP payload for starting a new test.
type ABStartRequest struct {
	TestName     string `json:"test_name" validate:"required"`
	ControlPct   int    `json:"control_pct" validate:"min=0,max=100"`
	DurationDays int    `json:"duration_days" validate:"required,min=1"`
}
