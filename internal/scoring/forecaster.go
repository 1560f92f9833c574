package scoring

import "github.com/cryptomagiciian/sali-bot/internal/models"

// Weights holds the linear model coefficients applied to the feature
// vector. ConsensusShift dominates: it is the most direct price-movement
// signal.
type Weights struct {
	CatalystScore  float64
	InfoStrength   float64
	ConsensusShift float64
	VolatilityFlag float64
	Microstructure float64
	Bias           float64
}

// DefaultWeights returns the fixed production weights.
func DefaultWeights() Weights {
	return Weights{
		CatalystScore:  0.15,
		InfoStrength:   0.10,
		ConsensusShift: 0.40,
		VolatilityFlag: 0.05,
		Microstructure: 0.05,
		Bias:           0.0,
	}
}

// Forecaster combines the feature vector with the market-implied
// probability into a model probability. Pure and stateless: no
// calibration drift, no learning.
type Forecaster struct {
	weights Weights
}

// NewForecaster creates a Forecaster with the default weights.
func NewForecaster() *Forecaster {
	return &Forecaster{weights: DefaultWeights()}
}

// Predict returns the model probability and the edge (pModel − pMarket).
// pModel is clamped to [0.01, 0.99] to prevent degenerate probabilities.
func (f *Forecaster) Predict(features models.Features, pMarket float64) (pModel, edge float64) {
	linear := f.weights.Bias
	linear += f.weights.CatalystScore * features.CatalystScore
	linear += f.weights.InfoStrength * features.InfoStrength
	linear += f.weights.ConsensusShift * features.ConsensusShift
	linear += f.weights.VolatilityFlag * features.VolatilityFlag
	linear += f.weights.Microstructure * features.Microstructure

	pModel = pMarket + linear
	if pModel < 0.01 {
		pModel = 0.01
	}
	if pModel > 0.99 {
		pModel = 0.99
	}
	return pModel, pModel - pMarket
}
