package model

// NoExit marks a backtest event whose price never reverted within the horizon.
const NoExit = -1

// BacktestEvent is one historical GREEN entry and its outcome.
type BacktestEvent struct {
	EntryIndex   int     `json:"entryIndex"`
	ExitIndex    int     `json:"exitIndex"`
	BarsToRevert int     `json:"barsToRevert"`
	State        State   `json:"state"`
	Elasticity   float64 `json:"elasticity"`
}

// Won reports whether the entry reverted within the horizon.
func (e BacktestEvent) Won() bool {
	return e.ExitIndex != NoExit
}

// BacktestResult aggregates a replay. It is read-only once produced.
type BacktestResult struct {
	TotalSignals    int             `json:"totalSignals"`
	Wins            int             `json:"wins"`
	WinRate         float64         `json:"winRate"`
	AvgBarsToRevert float64         `json:"avgBarsToRevert"`
	Events          []BacktestEvent `json:"events"`
}

// ComparisonResult summarizes backtest events similar to a live reading.
type ComparisonResult struct {
	SimilarSignals  int     `json:"similarSignals"`
	WinRate         float64 `json:"winRate"`
	AvgBarsToRevert float64 `json:"avgBarsToRevert"`
}

// FusedDecision is the final signal with a human-readable explanation.
type FusedDecision struct {
	State       State  `json:"state"`
	Explanation string `json:"explanation"`
}
