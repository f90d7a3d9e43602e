package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/history"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	sqlitestore "github.com/johanriascos7777/ReversionMediaTrading/internal/store/sqlite"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Download vendor candles into the SQLite archive",
	Long: `Fetch the newest candles for each timeframe from the vendor and upsert
them into a SQLite archive that elasticityd (HISTORY_SQLITE_PATH) and
"backtest run --source sqlite" can read.

Examples:
  backtest archive
  backtest archive --timeframe M5 --timeframe M15 --limit 5000`,
	RunE: runArchive,
}

var (
	archiveDBPath     string
	archiveTimeframes []string
	archiveLimit      int
)

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVar(&archiveDBPath, "db", "data/candles.db", "SQLite archive path")
	archiveCmd.Flags().StringSliceVar(&archiveTimeframes, "timeframe", nil, "Timeframes to archive (default: FAST_TF and SLOW_TF)")
	archiveCmd.Flags().IntVar(&archiveLimit, "limit", 500, "Candles to request per timeframe")
}

func runArchive(cmd *cobra.Command, args []string) error {
	tfs := cfg.Timeframes()
	if len(archiveTimeframes) > 0 {
		tfs = tfs[:0]
		for _, s := range archiveTimeframes {
			tf, err := model.ParseTimeframe(s)
			if err != nil {
				return err
			}
			tfs = append(tfs, tf)
		}
	}

	if dir := filepath.Dir(archiveDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: archiveDBPath})
	if err != nil {
		return err
	}
	defer w.Close()

	p := history.New(history.Config{
		BaseURL: cfg.HistoryURL,
		APIKey:  cfg.HistoryAPIKey,
		Symbol:  cfg.Symbol,
		Pause:   cfg.HistoryPause,
	})
	for _, tf := range tfs {
		candles, err := p.Fetch(cmd.Context(), tf, archiveLimit)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", tf, err)
		}
		if err := w.SaveCandles(cfg.Symbol, tf, candles); err != nil {
			return err
		}
		slog.Info("archived", "symbol", cfg.Symbol, "tf", tf, "candles", len(candles))
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d candles\n", cfg.Symbol, tf, len(candles))
	}
	return nil
}
