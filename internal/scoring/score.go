package scoring

import "math"

// Signal score formula:
//
//	signal_score = (edge * confidence) * liquidity_factor * spread_factor * recency_factor
//
// - liquidity_factor: log(1 + (volume + open_interest)/2000), capped at 1.5
// - spread_factor: max(0.2, 1 - min(1, spread_pct / 0.20))  (wider spread → lower score)
// - recency_factor: 1.0 if last move <= 15 min else max(0.5, 1 - (minutes - 15) / 120)

// LiquidityFactor rewards depth with diminishing returns, capped at 1.5.
func LiquidityFactor(volume, openInterest int) float64 {
	v := float64(volume + openInterest)
	return math.Min(1.5, math.Log1p(v/2000))
}

// SpreadFactor penalizes wide spreads, floored at 0.2 so a wide spread
// never zeroes the score outright.
func SpreadFactor(spreadPct float64) float64 {
	return math.Max(0.2, 1-math.Min(1, spreadPct/0.20))
}

// RecencyFactor decays linearly after 15 minutes down to a floor of 0.5.
func RecencyFactor(lastMoveMinutesAgo float64) float64 {
	if lastMoveMinutesAgo <= 15 {
		return 1.0
	}
	return math.Max(0.5, 1-(lastMoveMinutesAgo-15)/120)
}

// SignalScore combines edge, confidence, liquidity, spread, and recency
// into a single ranking score. Callers must not invoke this for
// non-positive edges in the intended flow.
func SignalScore(edge, confidence float64, volume, openInterest int, spreadPct, lastMoveMinutesAgo float64) float64 {
	base := edge * confidence
	return base * LiquidityFactor(volume, openInterest) * SpreadFactor(spreadPct) * RecencyFactor(lastMoveMinutesAgo)
}
