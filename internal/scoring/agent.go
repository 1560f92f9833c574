// Package scoring computes per-market feature vectors, model probabilities,
// and the composite signal ranking score.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cryptomagiciian/sali-bot/internal/classify"
	"github.com/cryptomagiciian/sali-bot/internal/models"
)

// SnapshotSource reads recent price history for a ticker, newest first.
type SnapshotSource interface {
	RecentSnapshots(ticker string, window time.Duration) ([]models.Snapshot, error)
}

// AgentConfig holds the reference event and history window for feature
// computation.
type AgentConfig struct {
	// EventDate anchors the catalyst step function for event-linked
	// verticals (NFL, CULTURE).
	EventDate time.Time
	// EventName appears in the catalyst rationale string.
	EventName string
	// Window bounds how far back price history is read.
	Window time.Duration
}

// Agent computes the feature vector, confidence, and rationale for one
// market. It reads recent snapshots from the store but holds no other state.
type Agent struct {
	store SnapshotSource
	cfg   AgentConfig
	now   func() time.Time
}

// NewAgent creates an Agent reading history from store.
func NewAgent(store SnapshotSource, cfg AgentConfig) *Agent {
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Minute
	}
	return &Agent{store: store, cfg: cfg, now: time.Now}
}

// ComputeFeatures derives the 5-dimensional feature vector, the confidence
// score, and the ordered rationale list for a market under a vertical.
func (a *Agent) ComputeFeatures(market *models.Market, vertical string) (models.Features, float64, []string) {
	snapshots, err := a.store.RecentSnapshots(market.Ticker, a.cfg.Window)
	if err != nil {
		log.Warn().Err(err).Str("ticker", market.Ticker).Msg("Failed to read snapshot history")
		snapshots = nil
	}

	catalystScore := a.catalystScore(vertical)

	infoStrength := float64(market.Volume+market.OpenInterest) / 10000
	if infoStrength > 1 {
		infoStrength = 1
	}

	// Snapshots are newest-first: index 0 is the most recent observation.
	consensusShift := 0.0
	if len(snapshots) >= 2 {
		newest, oldest := snapshots[0].YesBid, snapshots[len(snapshots)-1].YesBid
		if newest != nil && oldest != nil {
			consensusShift = float64(*newest-*oldest) / 100
		}
	}

	volatilityFlag := 0.0
	if len(snapshots) >= 2 {
		var prices []int
		for _, s := range snapshots {
			if s.YesBid != nil {
				prices = append(prices, *s.YesBid)
			}
		}
		for i := 0; i+1 < len(prices); i++ {
			delta := prices[i] - prices[i+1]
			if delta < 0 {
				delta = -delta
			}
			if delta >= 5 {
				volatilityFlag = 1
				break
			}
		}
	}

	spread := 0.20
	if market.YesBid != nil && market.YesAsk != nil {
		spread = float64(*market.YesAsk-*market.YesBid) / 100
		if spread < 0 {
			spread = 0
		}
	}
	microstructure := 1 - math.Min(1, spread/0.20)

	features := models.Features{
		CatalystScore:  catalystScore,
		InfoStrength:   infoStrength,
		ConsensusShift: consensusShift,
		VolatilityFlag: volatilityFlag,
		Microstructure: microstructure,
	}
	confidence := 0.4*infoStrength + 0.6*microstructure

	var why []string
	if catalystScore > 0.6 {
		why = append(why, fmt.Sprintf("High catalyst: %s very soon", a.cfg.EventName))
	}
	if volatilityFlag > 0 {
		why = append(why, "Recent price volatility detected")
	}
	if consensusShift > 0.03 {
		why = append(why, fmt.Sprintf("Bullish shift: +%.1f¢", consensusShift*100))
	} else if consensusShift < -0.03 {
		why = append(why, fmt.Sprintf("Bearish shift: %.1f¢", consensusShift*100))
	}
	if microstructure > 0.7 {
		why = append(why, "Tight spread / better microstructure")
	}
	if len(why) == 0 {
		why = append(why, "Standard signal based on model edge")
	}

	return features, confidence, why
}

// Process wraps ComputeFeatures into a timestamped AgentOutput.
func (a *Agent) Process(market *models.Market, vertical string) models.AgentOutput {
	features, confidence, why := a.ComputeFeatures(market, vertical)
	return models.AgentOutput{
		Ticker:     market.Ticker,
		Title:      market.Title,
		Vertical:   vertical,
		Timestamp:  a.now(),
		Features:   features,
		Confidence: confidence,
		Why:        why,
	}
}

// catalystScore steps on days until the reference event. The upper tiers
// apply only to event-linked verticals.
func (a *Agent) catalystScore(vertical string) float64 {
	if vertical != classify.VerticalNFL && vertical != classify.VerticalCulture {
		return 0.3
	}
	daysUntil := daysBetween(a.now(), a.cfg.EventDate)
	switch {
	case daysUntil <= 1:
		return 0.9
	case daysUntil <= 3:
		return 0.6
	default:
		return 0.3
	}
}

func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
