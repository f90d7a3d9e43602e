package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read access to the candle archive. It never writes.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping reader: %w", err)
	}

	slog.Info("sqlite: opened archive reader", "path", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadCandles returns the newest limit candles of symbol/tf, oldest first.
// A non-positive limit returns every archived candle.
func (r *Reader) ReadCandles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close FROM (
			SELECT ts, open, high, low, close
			FROM candles
			WHERE symbol = ? AND tf = ?
			ORDER BY ts DESC
			LIMIT ?
		) ORDER BY ts ASC
	`, symbol, string(tf), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	candles := []model.Candle{}
	for rows.Next() {
		c := model.Candle{Closed: true}
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Archive adapts a Reader to model.HistoryProvider for one symbol.
type Archive struct {
	Reader *Reader
	Symbol string
}

// FetchCandles implements model.HistoryProvider. Read errors yield an empty slice.
func (a Archive) FetchCandles(ctx context.Context, tf model.Timeframe, limit int) []model.Candle {
	candles, err := a.Reader.ReadCandles(ctx, a.Symbol, tf, limit)
	if err != nil {
		slog.Warn("sqlite: archive read failed", "tf", tf, "err", err)
		return []model.Candle{}
	}
	return candles
}
