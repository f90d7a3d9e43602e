// Package state maps indicator readings to the GREEN/YELLOW/RED signal:
// per-timeframe classification, fast/slow timeframe fusion and the final
// decision weighted by historical evidence.
package state

import (
	"fmt"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// Thresholds configure Classify.
type Thresholds struct {
	PercentileGreenMin  float64 `json:"percentile_green_min" yaml:"percentile_green_min"`
	PercentileYellowMin float64 `json:"percentile_yellow_min" yaml:"percentile_yellow_min"`
	ElasticityMin       float64 `json:"elasticity_min" yaml:"elasticity_min"`
	ElasticityMax       float64 `json:"elasticity_max" yaml:"elasticity_max"`
}

// DefaultThresholds returns 80/60 percentile and [1.0, 5.5] elasticity.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PercentileGreenMin:  80,
		PercentileYellowMin: 60,
		ElasticityMin:       1.0,
		ElasticityMax:       5.5,
	}
}

// Validate checks the thresholds are ordered and within range.
func (t Thresholds) Validate() error {
	switch {
	case t.PercentileYellowMin < 0 || t.PercentileGreenMin > 100:
		return fmt.Errorf("percentile thresholds must be within [0,100]")
	case t.PercentileYellowMin > t.PercentileGreenMin:
		return fmt.Errorf("percentile_yellow_min %.2f exceeds percentile_green_min %.2f",
			t.PercentileYellowMin, t.PercentileGreenMin)
	case t.ElasticityMin < 0 || t.ElasticityMin > t.ElasticityMax:
		return fmt.Errorf("elasticity band [%.2f, %.2f] is invalid", t.ElasticityMin, t.ElasticityMax)
	}
	return nil
}

// Classify returns GREEN when the percentile clears the green threshold and
// elasticity lies inside the band (bounds inclusive), YELLOW when the
// percentile clears the yellow threshold, and RED otherwise.
//
// Callers must not classify before warm-up; that case has no state at all.
func Classify(elasticity, percentile float64, t Thresholds) model.State {
	if percentile >= t.PercentileGreenMin &&
		elasticity >= t.ElasticityMin &&
		elasticity <= t.ElasticityMax {
		return model.StateGreen
	}
	if percentile >= t.PercentileYellowMin {
		return model.StateYellow
	}
	return model.StateRed
}

// FuseTimeframes combines fast and slow states. The fast timeframe gates
// entry: only GREEN/GREEN is GREEN and GREEN/YELLOW is YELLOW. Everything
// else, slow GREEN included, is RED.
func FuseTimeframes(fast, slow model.State) model.State {
	if fast != model.StateGreen {
		return model.StateRed
	}
	switch slow {
	case model.StateGreen:
		return model.StateGreen
	case model.StateYellow:
		return model.StateYellow
	}
	return model.StateRed
}
