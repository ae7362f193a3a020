// Package alphasim provides a Go SDK for the alphasim-server API.
package alphasim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BacktestRequest is the request body for RunBacktest. Dates are
// YYYY-MM-DD strings.
type BacktestRequest struct {
	SignalName        string  `json:"signalName"`
	Threshold         float64 `json:"threshold"`
	StartDate         string  `json:"startDate"`
	EndDate           string  `json:"endDate"`
	InitialCapital    float64 `json:"initialCapital"`
	MaxPositions      int     `json:"maxPositions"`
	HoldingPeriod     int     `json:"holdingPeriod"`
	PositionSizing    string  `json:"positionSizing,omitempty"`
	UseAlphaRanking   bool    `json:"useAlphaRanking,omitempty"`
	AlphaMinThreshold float64 `json:"alphaMinThreshold,omitempty"`
}

// Trade is one ledger entry from a backtest run. SELL entries carry the
// exit fields (EntryDate through CloseReason).
type Trade struct {
	Side        string    `json:"side"`
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

// Position is a holding still open at the end of a run.
type Position struct {
	Ticker      string    `json:"ticker"`
	EntryDate   time.Time `json:"entryDate"`
	EntryPrice  float64   `json:"entryPrice"`
	Shares      int64     `json:"shares"`
	EntryValue  float64   `json:"entryValue"`
	SignalValue float64   `json:"signalValue"`
}

// EquityPoint is one end-of-day portfolio snapshot.
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

// TradeMetrics holds trade-level summary statistics.
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
	Stats           Stats         `json:"stats"`
	TradeMetrics    TradeMetrics  `json:"tradeMetrics"`
	Trades          []Trade       `json:"trades"`
	ActivePositions []Position    `json:"activePositions"`
	EquityCurve     []EquityPoint `json:"equityCurve"`
}

// SignalRow is one stored raw signal row.
type SignalRow struct {
	Scope  string  `json:"scope"`
	Date   string  `json:"date"`
	Ticker string  `json:"ticker,omitempty"`
	Value  float64 `json:"value"`
}

// SignalsResponse lists stored rows for one signal.
type SignalsResponse struct {
	Name string      `json:"name"`
	Rows []SignalRow `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// Client provides a Go SDK for interacting with the alphasim-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new alphasim API client. Backtests are synchronous
// server-side, so the client allows generous request timeouts.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// RunBacktest runs one backtest and returns the full result.
func (c *Client) RunBacktest(ctx context.Context, req BacktestRequest) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/backtest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return &result, nil
}

// GetSignals retrieves stored raw signal rows for one signal and range.
// Dates are YYYY-MM-DD strings.
func (c *Client) GetSignals(ctx context.Context, name, start, end string) (*SignalsResponse, error) {
	url := fmt.Sprintf("%s/api/signals/%s?start=%s&end=%s", c.baseURL, name, start, end)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var out SignalsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding signals: %w", err)
	}
	return &out, nil
}

// GetSymbols retrieves the instrument universe known to the server.
func (c *Client) GetSymbols(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/symbols", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var out struct {
		Symbols []string `json:"symbols"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding symbols: %w", err)
	}
	return out.Symbols, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

// decodeAPIError turns a non-200 response into an error carrying the
// server's structured message when one is present.
func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr errorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		if apiErr.Hint != "" {
			return fmt.Errorf("api error (status %d): %s (%s)", resp.StatusCode, apiErr.Error, apiErr.Hint)
		}
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("api error: status %d", resp.StatusCode)
}
