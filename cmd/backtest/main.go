// cmd/backtest replays historical candles through the reversion backtest
// without a live feed.
//
// Usage:
//
//	backtest run --source http --timeframe M5
//	backtest run --source sqlite --db data/candles.db --timeframe M15 --state GREEN --elasticity 1.8
//	backtest archive --timeframe M5 --db data/candles.db
//
// Instrument, vendor and signal parameters come from the same environment as
// elasticityd (SYMBOL, HISTORY_URL, HISTORY_API_KEY, SIGNAL_CONFIG, ...).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/johanriascos7777/ReversionMediaTrading/config"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
)

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var (
	logLevel   string
	symbolFlag string
)

// rootCmd is the base command for the backtest CLI.
var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Offline reversion backtest over historical candles",
	Long: `Replay historical candles through the same indicator, percentile and
state rules the live service uses, and report how often GREEN entries
reverted to the reference line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if symbolFlag != "" {
			loaded.Symbol = symbolFlag
		}
		// Logs go to stderr so stdout stays machine readable.
		logger.New(os.Stderr, "backtest", config.ParseLevel(logLevel))
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&symbolFlag, "symbol", "", "Instrument symbol (default: $SYMBOL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
