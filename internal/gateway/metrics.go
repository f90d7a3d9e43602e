package gateway

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// SystemMetrics is the /api/metrics response: process resources, pipeline
// progress and subscriber delivery latency.
type SystemMetrics struct {
	Load        [3]float64 `json:"load_avg"`
	CPUCores    int        `json:"cpu_cores"`
	MemUsedMB   float64    `json:"mem_used_mb"`
	MemTotalMB  float64    `json:"mem_total_mb"`
	HeapAllocMB float64    `json:"heap_alloc_mb"`
	GCRuns      uint32     `json:"gc_runs"`
	Goroutines  int        `json:"goroutines"`
	UptimeSec   int64      `json:"uptime_sec"`

	Candles       map[string]int `json:"candles"`
	BacktestReady bool           `json:"backtest_ready"`

	WSClients       int     `json:"ws_clients"`
	DeliverySamples int     `json:"delivery_samples"`
	DeliveryP50Ms   float64 `json:"delivery_p50_ms"`
	DeliveryP95Ms   float64 `json:"delivery_p95_ms"`
	DeliveryP99Ms   float64 `json:"delivery_p99_ms"`
	TS              string  `json:"ts"`
}

// CollectMetrics samples the process and the pipeline. Host readings stay
// zero on platforms without procfs.
func CollectMetrics(start time.Time, hub *Hub, src Source) SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := SystemMetrics{
		Load:        readLoadAvg("/proc/loadavg"),
		CPUCores:    runtime.NumCPU(),
		HeapAllocMB: float64(ms.HeapAlloc) / (1 << 20),
		GCRuns:      ms.NumGC,
		Goroutines:  runtime.NumGoroutine(),
		UptimeSec:   int64(time.Since(start).Seconds()),
		Candles:     make(map[string]int),
		TS:          time.Now().UTC().Format(time.RFC3339Nano),
	}
	if total, avail := readMemInfo("/proc/meminfo"); total > 0 {
		m.MemTotalMB = float64(total) / 1024
		m.MemUsedMB = float64(total-avail) / 1024
	}

	for tf, n := range src.CandleCounts() {
		m.Candles[string(tf)] = n
	}
	_, m.BacktestReady = src.Backtest()

	m.WSClients = hub.ClientCount()
	m.DeliverySamples = hub.Latency.Count()
	m.DeliveryP50Ms, m.DeliveryP95Ms, m.DeliveryP99Ms = hub.Latency.Percentiles()
	return m
}

// readLoadAvg returns the 1, 5 and 15 minute load averages.
func readLoadAvg(path string) (out [3]float64) {
	b, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	fields := strings.Fields(string(b))
	for i := 0; i < len(out) && i < len(fields); i++ {
		out[i], _ = strconv.ParseFloat(fields[i], 64)
	}
	return out
}

// readMemInfo returns MemTotal and MemAvailable in kB.
func readMemInfo(path string) (total, available uint64) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		switch key {
		case "MemTotal":
			total, _ = strconv.ParseUint(fields[0], 10, 64)
		case "MemAvailable":
			available, _ = strconv.ParseUint(fields[0], 10, 64)
		}
	}
	if available > total {
		available = total
	}
	return total, available
}
