package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/backtest"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/history"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/state"
	sqlitestore "github.com/johanriascos7777/ReversionMediaTrading/internal/store/sqlite"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the backtest and print the result as JSON",
	Long: `Fetch a candle batch for one timeframe, replay it and print the
BacktestResult. With --state the output also carries the comparison of that
live reading against the replay and the resulting fused decision.

Examples:
  backtest run --timeframe M5
  backtest run --source sqlite --db data/candles.db --limit 0
  backtest run --state GREEN --elasticity 1.7 --events=false`,
	RunE: runBacktest,
}

var (
	runSource     string
	runDBPath     string
	runTimeframe  string
	runLimit      int
	runState      string
	runElasticity float64
	runEvents     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runSource, "source", "http", "Candle source (http|sqlite)")
	runCmd.Flags().StringVar(&runDBPath, "db", "data/candles.db", "SQLite archive path for --source sqlite")
	runCmd.Flags().StringVar(&runTimeframe, "timeframe", "M5", "Timeframe to replay (M5|5min|M15|15min)")
	runCmd.Flags().IntVar(&runLimit, "limit", 500, "Newest candles to replay (0 = whole archive, sqlite only)")
	runCmd.Flags().StringVar(&runState, "state", "", "Live state to compare (GREEN|YELLOW|RED)")
	runCmd.Flags().Float64Var(&runElasticity, "elasticity", 0, "Live elasticity to compare")
	runCmd.Flags().BoolVar(&runEvents, "events", true, "Include the per-event log in the output")
}

type runOutput struct {
	Symbol     string                  `json:"symbol"`
	Timeframe  model.Timeframe         `json:"timeframe"`
	Candles    int                     `json:"candles"`
	Result     model.BacktestResult    `json:"result"`
	Comparison *model.ComparisonResult `json:"comparison,omitempty"`
	Decision   *model.FusedDecision    `json:"decision,omitempty"`
}

func runBacktest(cmd *cobra.Command, args []string) error {
	tf, err := model.ParseTimeframe(runTimeframe)
	if err != nil {
		return err
	}
	var live model.State
	if runState != "" {
		live = model.State(runState)
		if !live.Valid() {
			return fmt.Errorf("invalid --state %q", runState)
		}
	}

	sig := cfg.Signal
	btCfg := sig.BacktestConfig()
	if err := btCfg.Validate(); err != nil {
		return err
	}

	candles, err := loadCandles(cmd.Context(), tf)
	if err != nil {
		return err
	}
	if !btCfg.Eligible(len(candles)) {
		return fmt.Errorf("backtest not ready: %d candles, need at least %d", len(candles), max(btCfg.MinCandles, btCfg.EMAPeriod+1))
	}

	slog.Info("replaying", "symbol", cfg.Symbol, "tf", tf, "candles", len(candles))
	res := backtest.Run(candles, btCfg)

	out := runOutput{Symbol: cfg.Symbol, Timeframe: tf, Candles: len(candles), Result: res}
	if live != "" {
		cmp := backtest.Compare(live, runElasticity, res, sig.Epsilon)
		dec := state.Decide(live, &cmp, sig.Cutoffs())
		out.Comparison = &cmp
		out.Decision = &dec
	}
	if !runEvents {
		out.Result.Events = nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadCandles(ctx context.Context, tf model.Timeframe) ([]model.Candle, error) {
	switch runSource {
	case "http":
		p := history.New(history.Config{
			BaseURL: cfg.HistoryURL,
			APIKey:  cfg.HistoryAPIKey,
			Symbol:  cfg.Symbol,
		})
		return p.Fetch(ctx, tf, runLimit)
	case "sqlite":
		r, err := sqlitestore.NewReader(runDBPath)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.ReadCandles(ctx, cfg.Symbol, tf, runLimit)
	default:
		return nil, fmt.Errorf("unknown --source %q (want http or sqlite)", runSource)
	}
}
