package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/backtest"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/indicator"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/state"
)

// Signal holds every tunable parameter of the signal pipeline. It can be
// replaced at runtime through a Store.
type Signal struct {
	PercentileGreenMin  float64 `yaml:"percentile_green_min" json:"percentile_green_min"`
	PercentileYellowMin float64 `yaml:"percentile_yellow_min" json:"percentile_yellow_min"`
	ElasticityMin       float64 `yaml:"elasticity_min" json:"elasticity_min"`
	ElasticityMax       float64 `yaml:"elasticity_max" json:"elasticity_max"`

	EMAPeriod        int `yaml:"ema_period" json:"ema_period"`
	ATRPeriod        int `yaml:"atr_period" json:"atr_period"`
	PercentileWindow int `yaml:"percentile_window" json:"percentile_window"`
	CandleHistory    int `yaml:"candle_history" json:"candle_history"`

	MaxBarsToRevert    int     `yaml:"max_bars_to_revert" json:"max_bars_to_revert"`
	MinBacktestCandles int     `yaml:"min_backtest_candles" json:"min_backtest_candles"`
	Epsilon            float64 `yaml:"epsilon" json:"epsilon"`
	WinRateGreen       float64 `yaml:"win_rate_green" json:"win_rate_green"`
	WinRateRed         float64 `yaml:"win_rate_red" json:"win_rate_red"`

	LiveReference     indicator.Mode `yaml:"live_reference" json:"live_reference"`
	BacktestReference indicator.Mode `yaml:"backtest_reference" json:"backtest_reference"`
}

// DefaultSignal returns the production defaults.
func DefaultSignal() Signal {
	th := state.DefaultThresholds()
	cut := state.DefaultCutoffs()
	return Signal{
		PercentileGreenMin:  th.PercentileGreenMin,
		PercentileYellowMin: th.PercentileYellowMin,
		ElasticityMin:       th.ElasticityMin,
		ElasticityMax:       th.ElasticityMax,

		EMAPeriod:        100,
		ATRPeriod:        14,
		PercentileWindow: 200,
		CandleHistory:    150,

		MaxBarsToRevert:    20,
		MinBacktestCandles: 110,
		Epsilon:            backtest.DefaultEpsilon,
		WinRateGreen:       cut.GreenWinRate,
		WinRateRed:         cut.RedWinRate,

		LiveReference:     indicator.Exponential,
		BacktestReference: indicator.SimpleAverage,
	}
}

// LoadSignalFile reads a YAML file over the defaults. Keys missing from the
// file keep their default values.
func LoadSignalFile(path string) (Signal, error) {
	s := DefaultSignal()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	return s, s.Validate()
}

// Validate rejects inconsistent parameters with an error wrapping ErrInvalid.
func (s Signal) Validate() error {
	if err := s.Thresholds().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Cutoffs().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch {
	case s.EMAPeriod < 2:
		return fmt.Errorf("%w: ema_period must be at least 2", ErrInvalid)
	case s.ATRPeriod < 1:
		return fmt.Errorf("%w: atr_period must be positive", ErrInvalid)
	case s.PercentileWindow < 1:
		return fmt.Errorf("%w: percentile_window must be positive", ErrInvalid)
	case s.CandleHistory < s.EMAPeriod:
		return fmt.Errorf("%w: candle_history %d is shorter than ema_period %d", ErrInvalid, s.CandleHistory, s.EMAPeriod)
	case s.MaxBarsToRevert < 1:
		return fmt.Errorf("%w: max_bars_to_revert must be positive", ErrInvalid)
	case s.Epsilon <= 0:
		return fmt.Errorf("%w: epsilon must be positive", ErrInvalid)
	}
	return nil
}

// Thresholds returns the classifier thresholds.
func (s Signal) Thresholds() state.Thresholds {
	return state.Thresholds{
		PercentileGreenMin:  s.PercentileGreenMin,
		PercentileYellowMin: s.PercentileYellowMin,
		ElasticityMin:       s.ElasticityMin,
		ElasticityMax:       s.ElasticityMax,
	}
}

// Cutoffs returns the decision win-rate cutoffs.
func (s Signal) Cutoffs() state.Cutoffs {
	return state.Cutoffs{GreenWinRate: s.WinRateGreen, RedWinRate: s.WinRateRed}
}

// IndicatorParams returns the live indicator parameters.
func (s Signal) IndicatorParams() indicator.Params {
	return indicator.Params{EMAPeriod: s.EMAPeriod, ATRPeriod: s.ATRPeriod, Mode: s.LiveReference}
}

// BacktestConfig returns the replay configuration.
func (s Signal) BacktestConfig() backtest.Config {
	return backtest.Config{
		EMAPeriod:        s.EMAPeriod,
		MaxBarsToRevert:  s.MaxBarsToRevert,
		PercentileWindow: s.PercentileWindow,
		MinCandles:       s.MinBacktestCandles,
		Mode:             s.BacktestReference,
		Thresholds:       s.Thresholds(),
	}
}

// BacktestChanged reports whether a replay must be redone when moving from
// s to next.
func (s Signal) BacktestChanged(next Signal) bool {
	return s.BacktestConfig() != next.BacktestConfig()
}
