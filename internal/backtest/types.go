// Package backtest implements the capital-constrained portfolio
// simulator: it replays normalized signal points against daily close
// prices, producing a trade ledger, an equity curve, and summary
// performance statistics.
package backtest

import "time"

// Side marks the direction of a ledger entry.
type Side string

// Trade sides.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// CloseReasonHoldingPeriod is the only close trigger in this version.
// Stop-loss / take-profit / signal-reversal closes are an extension
// point, not implemented.
const CloseReasonHoldingPeriod = "holding_period"

// Position is an open, capital-committed holding in one instrument.
// At most one Position is open per ticker at any time.
type Position struct {
	Ticker      string    `json:"ticker"`
	EntryDate   time.Time `json:"entryDate"`
	EntryPrice  float64   `json:"entryPrice"`
	Shares      int64     `json:"shares"`
	EntryValue  float64   `json:"entryValue"`
	SignalValue float64   `json:"signalValue"`
}

// Trade is one immutable ledger entry. BUY entries carry the entry
// snapshot fields; SELL entries additionally carry the exit fields
// (EntryDate through CloseReason).
type Trade struct {
	Side        Side      `json:"side"`
	Date        time.Time `json:"date"`
	Ticker      string    `json:"ticker"`
	Price       float64   `json:"price"`
	Shares      int64     `json:"shares"`
	Value       float64   `json:"value"`
	SignalValue float64   `json:"signalValue"`

	CashBefore           float64 `json:"cashBefore"`
	CashAfter            float64 `json:"cashAfter"`
	PortfolioValueBefore float64 `json:"portfolioValueBefore"`
	PortfolioValueAfter  float64 `json:"portfolioValueAfter"`

	EntryDate   time.Time `json:"entryDate,omitzero"`
	EntryPrice  float64   `json:"entryPrice,omitempty"`
	HoldingDays int       `json:"holdingDays,omitempty"`
	PnL         float64   `json:"pnl,omitempty"`
	ReturnPct   float64   `json:"returnPct,omitempty"`
	CloseReason string    `json:"closeReason,omitempty"`
}

// EquityPoint is the end-of-day portfolio snapshot.
type EquityPoint struct {
	Date                time.Time `json:"date"`
	PortfolioValue      float64   `json:"portfolioValue"`
	CumulativeReturnPct float64   `json:"cumulativeReturnPct"`
	NumPositions        int       `json:"numPositions"`
	CashBalance         float64   `json:"cashBalance"`
	UtilizationPct      float64   `json:"utilizationPct"`
}

// Stats holds portfolio-level summary statistics.
type Stats struct {
	InitialCapital      float64 `json:"initialCapital"`
	FinalValue          float64 `json:"finalValue"`
	TotalReturnPct      float64 `json:"totalReturnPct"`
	AnnualizedReturnPct float64 `json:"annualizedReturnPct"`
	SharpeRatio         float64 `json:"sharpeRatio"`
	MaxDrawdownPct      float64 `json:"maxDrawdownPct"`
}

// TradeMetrics holds trade-level summary statistics. All ratios degrade
// to 0 when the ledger holds no completed trades.
type TradeMetrics struct {
	TotalTrades           int     `json:"totalTrades"`
	WinningTrades         int     `json:"winningTrades"`
	LosingTrades          int     `json:"losingTrades"`
	WinRatePct            float64 `json:"winRatePct"`
	ProfitFactor          float64 `json:"profitFactor"`
	AvgTradeSize          float64 `json:"avgTradeSize"`
	BestTradePct          float64 `json:"bestTradePct"`
	WorstTradePct         float64 `json:"worstTradePct"`
	AvgHoldingDays        float64 `json:"avgHoldingDays"`
	AvgCashUtilizationPct float64 `json:"avgCashUtilizationPct"`
}

// Result is the full outcome of one backtest run.
type Result struct {
	Config          Config        `json:"config"`
	Stats           Stats         `json:"stats"`
	TradeMetrics    TradeMetrics  `json:"tradeMetrics"`
	Trades          []Trade       `json:"trades"`
	ActivePositions []Position    `json:"activePositions"`
	EquityCurve     []EquityPoint `json:"equityCurve"`
}
