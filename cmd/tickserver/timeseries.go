package main

import (
	"encoding/json"
	"hash/fnv"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

const (
	datetimeLayout    = "2006-01-02 15:04:05"
	defaultOutputSize = 30
	maxOutputSize     = 5000
)

type seriesValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
}

type seriesMeta struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

type seriesResponse struct {
	Meta   *seriesMeta   `json:"meta,omitempty"`
	Values []seriesValue `json:"values,omitempty"`
	Status string        `json:"status"`
	Code   int           `json:"code,omitempty"`

	Message string `json:"message,omitempty"`
}

func writeSeries(w http.ResponseWriter, resp seriesResponse) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// seriesError mirrors the vendor: errors travel in the body with HTTP 200.
func seriesError(w http.ResponseWriter, code int, msg string) {
	writeSeries(w, seriesResponse{Status: "error", Code: code, Message: msg})
}

// timeSeriesHandler serves /time_series?symbol=&interval=&outputsize= with
// random-walk candles ending at the last closed period, newest first.
func timeSeriesHandler(instruments []instrument, now func() time.Time) http.HandlerFunc {
	start := make(map[string]float64, len(instruments))
	for _, inst := range instruments {
		start[inst.Symbol] = inst.Start
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		symbol := q.Get("symbol")
		price, ok := start[symbol]
		if !ok {
			seriesError(w, http.StatusNotFound, "symbol not found: "+symbol)
			return
		}
		tf, err := model.ParseTimeframe(q.Get("interval"))
		if err != nil {
			seriesError(w, http.StatusBadRequest, "invalid interval: "+q.Get("interval"))
			return
		}
		size := defaultOutputSize
		if s := q.Get("outputsize"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > maxOutputSize {
				seriesError(w, http.StatusBadRequest, "invalid outputsize: "+s)
				return
			}
			size = n
		}

		candles := syntheticCandles(seriesSeed(symbol, tf), price, tf, size, now())
		values := make([]seriesValue, len(candles))
		for i, c := range candles {
			// newest first
			values[len(candles)-1-i] = seriesValue{
				Datetime: c.Start().Format(datetimeLayout),
				Open:     formatPrice(c.Open),
				High:     formatPrice(c.High),
				Low:      formatPrice(c.Low),
				Close:    formatPrice(c.Close),
			}
		}
		writeSeries(w, seriesResponse{
			Meta:   &seriesMeta{Symbol: symbol, Interval: tf.Interval()},
			Values: values,
			Status: "ok",
		})
	}
}

// syntheticCandles returns n closed candles, oldest first, the last one
// being the most recent period that has fully elapsed at now.
func syntheticCandles(seed int64, price float64, tf model.Timeframe, n int, now time.Time) []model.Candle {
	rng := rand.New(rand.NewSource(seed))
	period := tf.PeriodMs()
	last := now.UnixMilli()/period*period - period

	out := make([]model.Candle, n)
	for i := range out {
		open := price
		closePx := open + (rng.Float64()-0.5)*0.001
		if closePx <= 0 {
			closePx = open
		}
		out[i] = model.Candle{
			Time:   last - int64(n-1-i)*period,
			Open:   open,
			High:   max(open, closePx) + rng.Float64()*0.0004,
			Low:    max(min(open, closePx)-rng.Float64()*0.0004, closePx/2),
			Close:  closePx,
			Closed: true,
		}
		price = closePx
	}
	return out
}

// seriesSeed keeps repeated requests for one symbol and interval stable.
func seriesSeed(symbol string, tf model.Timeframe) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(tf))
	return int64(h.Sum64())
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 5, 64)
}
