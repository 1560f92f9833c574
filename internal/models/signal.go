package models

import "time"

// Signal is an emittable trading signal: a market whose model edge and
// confidence cleared the admission thresholds. Immutable once created,
// except that Categories and MatchedKeywords are widened during
// cross-category aggregation within the same cycle.
type Signal struct {
	ID              string    `json:"id"`
	Ticker          string    `json:"ticker"`
	Title           string    `json:"title"`
	Vertical        string    `json:"vertical"`
	YesPrice        int       `json:"yes_price"`
	PMarket         float64   `json:"p_market"`
	PModel          float64   `json:"p_model"`
	Edge            float64   `json:"edge"`
	Confidence      float64   `json:"confidence"`
	Why             []string  `json:"why"`
	Timestamp       time.Time `json:"timestamp"`
	SignalScore     float64   `json:"signal_score"`
	Volume          int       `json:"volume"`
	OpenInterest    int       `json:"open_interest"`
	MatchedKeywords []string  `json:"matched_keywords,omitempty"`
	Categories      []string  `json:"categories,omitempty"`
}

// RankedSignal is a signal placed in a category's top-N display list.
// Admitted reports whether the ticker passed cooldown and rate-limit
// checks this cycle; a ticker ranked in several categories is displayed
// in each but admitted at most once.
type RankedSignal struct {
	Signal
	Admitted bool
}

// CategoryPicks groups the ranked signals surfaced for one category
// in a single cycle.
type CategoryPicks struct {
	Category string
	Signals  []RankedSignal
}
