// Package models defines the core domain entities: markets, features,
// agent outputs, and signals.
package models

import (
	"errors"
	"time"
)

// Market is an immutable snapshot of a single yes/no market's top of book.
// Price fields are integer cents in [0,100]; nil means the side is absent.
type Market struct {
	Ticker       string `json:"ticker"`
	Title        string `json:"title"`
	YesBid       *int   `json:"yes_bid,omitempty"`
	NoBid        *int   `json:"no_bid,omitempty"`
	YesAsk       *int   `json:"yes_ask,omitempty"`
	NoAsk        *int   `json:"no_ask,omitempty"`
	Volume       int    `json:"volume"`
	OpenInterest int    `json:"open_interest"`
}

// Validate checks market field constraints.
func (m *Market) Validate() error {
	if m.Ticker == "" {
		return errors.New("market ticker must not be empty")
	}
	for _, p := range []*int{m.YesBid, m.NoBid, m.YesAsk, m.NoAsk} {
		if p != nil && (*p < 0 || *p > 100) {
			return errors.New("price must be between 0 and 100 cents")
		}
	}
	if m.Volume < 0 {
		return errors.New("volume must not be negative")
	}
	if m.OpenInterest < 0 {
		return errors.New("open interest must not be negative")
	}
	return nil
}

// Snapshot is one persisted price observation for a ticker.
type Snapshot struct {
	Timestamp    time.Time
	Ticker       string
	YesBid       *int
	NoBid        *int
	YesAsk       *int
	NoAsk        *int
	Volume       int
	OpenInterest int
}

// Features is the 5-dimensional feature vector computed per market.
// All components are in [0,1] except ConsensusShift, which is signed.
type Features struct {
	CatalystScore  float64 `json:"catalyst_score"`
	InfoStrength   float64 `json:"info_strength"`
	ConsensusShift float64 `json:"consensus_shift"`
	VolatilityFlag float64 `json:"volatility_flag"`
	Microstructure float64 `json:"market_microstructure"`
}

// AgentOutput is the per-cycle feature computation result for one market.
type AgentOutput struct {
	Ticker     string    `json:"ticker"`
	Title      string    `json:"title"`
	Vertical   string    `json:"vertical"`
	Timestamp  time.Time `json:"timestamp"`
	Features   Features  `json:"features"`
	Confidence float64   `json:"confidence"`
	Why        []string  `json:"why"`
}
