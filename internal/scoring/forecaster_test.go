package scoring

import (
	"testing"

	"github.com/cryptomagiciian/sali-bot/internal/models"
)

func TestPredict_EdgeIdentity(t *testing.T) {
	f := NewForecaster()
	features := models.Features{
		CatalystScore:  0.6,
		InfoStrength:   1.0,
		ConsensusShift: 0.0,
		VolatilityFlag: 0.0,
		Microstructure: 0.0,
	}

	pMarket := 0.48
	pModel, edge := f.Predict(features, pMarket)

	// 0.15*0.6 + 0.10*1.0 = 0.19
	if pModel < 0.6699 || pModel > 0.6701 {
		t.Errorf("expected p_model ≈ 0.67, got %f", pModel)
	}
	if edge != pModel-pMarket {
		t.Errorf("edge must equal p_model - p_market, got %f vs %f", edge, pModel-pMarket)
	}
}

func TestPredict_ClampUpper(t *testing.T) {
	f := NewForecaster()
	features := models.Features{
		CatalystScore:  1.0,
		InfoStrength:   1.0,
		ConsensusShift: 1.0,
		VolatilityFlag: 1.0,
		Microstructure: 1.0,
	}

	pModel, edge := f.Predict(features, 0.95)
	if pModel != 0.99 {
		t.Errorf("expected clamp at 0.99, got %f", pModel)
	}
	if edge != pModel-0.95 {
		t.Errorf("edge must reflect the clamped p_model, got %f", edge)
	}
}

func TestPredict_ClampLower(t *testing.T) {
	f := NewForecaster()
	features := models.Features{ConsensusShift: -1.0}

	pModel, _ := f.Predict(features, 0.05)
	if pModel != 0.01 {
		t.Errorf("expected clamp at 0.01, got %f", pModel)
	}
}

func TestPredict_BoundsAcrossInputs(t *testing.T) {
	f := NewForecaster()
	for _, shift := range []float64{-1, -0.5, 0, 0.5, 1} {
		for _, pMarket := range []float64{0, 0.01, 0.48, 0.99, 1} {
			features := models.Features{
				CatalystScore:  0.9,
				InfoStrength:   1,
				ConsensusShift: shift,
				VolatilityFlag: 1,
				Microstructure: 1,
			}
			pModel, _ := f.Predict(features, pMarket)
			if pModel < 0.01 || pModel > 0.99 {
				t.Errorf("p_model out of bounds: %f (shift=%f, p_market=%f)", pModel, shift, pMarket)
			}
		}
	}
}

func TestPredict_Deterministic(t *testing.T) {
	f := NewForecaster()
	features := models.Features{CatalystScore: 0.3, InfoStrength: 0.5, ConsensusShift: 0.02}

	p1, e1 := f.Predict(features, 0.4)
	p2, e2 := f.Predict(features, 0.4)
	if p1 != p2 || e1 != e2 {
		t.Error("identical inputs must produce identical outputs")
	}
}
