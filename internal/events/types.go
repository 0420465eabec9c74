package events

import "time"

// PickSummary is one accepted pick inside a PicksGeneratedEvent.
type PickSummary struct {
	MatchID     string  `json:"match_id"`
	League      string  `json:"league"`
	Label       string  `json:"label"` // "Arsenal vs Chelsea"
	Outcome     string  `json:"outcome"`
	Odds        float64 `json:"odds"`
	Probability float64 `json:"probability"`
	Edge        float64 `json:"edge"`
}

// ParlaySummary carries the combined numbers for a proposed parlay.
type ParlaySummary struct {
	Legs         int     `json:"legs"`
	TotalOdds    float64 `json:"total_odds"`
	CombinedProb float64 `json:"combined_prob"`
	Edge         float64 `json:"edge"`
}

// PicksGeneratedEvent is published at the end of a daily prediction run.
// The notifier formats it into the picks summary message.
type PicksGeneratedEvent struct {
	RunID           string         `json:"run_id"`
	Sport           Sport          `json:"sport"`
	MatchesAnalyzed int            `json:"matches_analyzed"`
	Picks           []PickSummary  `json:"picks"`
	Parlay          *ParlaySummary `json:"parlay,omitempty"`
	Stake           float64        `json:"stake"`
	PotentialReturn float64        `json:"potential_return"`
	PotentialProfit float64        `json:"potential_profit"`
	Degraded        bool           `json:"degraded,omitempty"` // model served under a calibration warning
}

// PickSettledEvent is published when a pending pick resolves against a result.
type PickSettledEvent struct {
	PickID  string `json:"pick_id"`
	BetID   string `json:"bet_id"`
	MatchID string `json:"match_id"`
	Label   string `json:"label"`
	Outcome string `json:"outcome"`
	Result  string `json:"result"` // "won" or "lost"
	Source  string `json:"source"` // where the result came from
}

// BetSettledEvent is published when every leg of a bet has resolved.
type BetSettledEvent struct {
	BetID         string  `json:"bet_id"`
	Result        string  `json:"result"`
	Legs          int     `json:"legs"`
	TotalOdds     float64 `json:"total_odds"`
	Stake         float64 `json:"stake"`
	ProfitLoss    float64 `json:"profit_loss"`
	BankrollAfter float64 `json:"bankroll_after"`
}

// OddsCapturedEvent reports one odds-capture job run.
type OddsCapturedEvent struct {
	Sport    Sport `json:"sport"`
	Stored   int   `json:"stored"`
	Rejected int   `json:"rejected"` // failed quality filters
}

// ResultsIngestedEvent reports one results-ingestion job run.
type ResultsIngestedEvent struct {
	Sport         Sport `json:"sport"`
	NewResults    int   `json:"new_results"`
	PicksResolved int   `json:"picks_resolved"`
}

// DriftFlaggedEvent is advisory: the monitor saw feature or performance drift.
type DriftFlaggedEvent struct {
	Sport          Sport     `json:"sport"`
	Features       []string  `json:"features,omitempty"` // features past the KS threshold
	MaxStatistic   float64   `json:"max_statistic,omitempty"`
	ROIBaseline    float64   `json:"roi_baseline"`
	ROIRecent      float64   `json:"roi_recent"`
	PerformanceHit bool      `json:"performance_hit"`
	CheckedAt      time.Time `json:"checked_at"`
}

// RunAlertEvent carries an operator-facing error from a scheduled job.
type RunAlertEvent struct {
	Job     string `json:"job"`
	Message string `json:"message"`
	Err     string `json:"err,omitempty"`
}
