package backtest

import "math"

// tradingDaysPerYear is the annualization factor used for the Sharpe
// ratio and the linear annualized-return scaling.
const tradingDaysPerYear = 252

// profitFactorCap bounds the profit factor when there are wins but no
// losses, instead of reporting infinity.
const profitFactorCap = 999

// ComputeMetrics derives trade-level and portfolio-level statistics from
// a finished run. A run with zero completed trades returns neutral
// metrics rather than an error.
//
// AnnualizedReturnPct uses the historical linear scaling
// totalReturn * 252/tradingDays, not a compounding CAGR. Downstream
// consumers depend on that numeric convention; do not change it here.
func ComputeMetrics(trades []Trade, curve []EquityPoint, initialCapital float64) (Stats, TradeMetrics) {
	stats := Stats{InitialCapital: initialCapital, FinalValue: initialCapital}
	var tm TradeMetrics

	// ----- trade-level -----

	var (
		sells      []Trade
		winsSum    float64
		lossSum    float64
		buyValues  float64
		buyCount   int
		holdingSum int
	)
	for _, t := range trades {
		switch t.Side {
		case SideBuy:
			buyValues += t.Value
			buyCount++
		case SideSell:
			sells = append(sells, t)
			if t.PnL > 0 {
				tm.WinningTrades++
				winsSum += t.PnL
			} else {
				tm.LosingTrades++
				lossSum += -t.PnL
			}
			holdingSum += t.HoldingDays
		}
	}

	tm.TotalTrades = len(sells)
	if tm.TotalTrades > 0 {
		tm.WinRatePct = float64(tm.WinningTrades) / float64(tm.TotalTrades) * 100
		tm.AvgHoldingDays = float64(holdingSum) / float64(tm.TotalTrades)

		best := math.Inf(-1)
		worst := math.Inf(1)
		for _, t := range sells {
			if t.ReturnPct > best {
				best = t.ReturnPct
			}
			if t.ReturnPct < worst {
				worst = t.ReturnPct
			}
		}
		tm.BestTradePct = best
		tm.WorstTradePct = worst

		if lossSum == 0 {
			if winsSum > 0 {
				tm.ProfitFactor = profitFactorCap
			}
		} else {
			tm.ProfitFactor = winsSum / lossSum
		}
	}
	if buyCount > 0 {
		tm.AvgTradeSize = buyValues / float64(buyCount)
	}

	if len(curve) > 0 {
		utilSum := 0.0
		for _, p := range curve {
			utilSum += p.UtilizationPct
		}
		tm.AvgCashUtilizationPct = utilSum / float64(len(curve))
	}

	// ----- portfolio-level -----

	if len(curve) == 0 {
		return stats, tm
	}

	stats.FinalValue = curve[len(curve)-1].PortfolioValue
	stats.TotalReturnPct = (stats.FinalValue - initialCapital) / initialCapital * 100
	stats.AnnualizedReturnPct = stats.TotalReturnPct * tradingDaysPerYear / float64(len(curve))

	// Per-step returns from consecutive equity points.
	var returns []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].PortfolioValue
		if prev > 0 {
			returns = append(returns, (curve[i].PortfolioValue-prev)/prev)
		}
	}
	stats.SharpeRatio = sharpe(returns)
	stats.MaxDrawdownPct = maxDrawdown(curve)

	return stats, tm
}

// sharpe computes mean/stddev * sqrt(252) over per-step returns,
// degrading to 0 when the deviation is zero or there are no returns.
func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the largest peak-to-trough decline in portfolio
// value as a percentage of the running peak.
func maxDrawdown(curve []EquityPoint) float64 {
	peak := 0.0
	maxDD := 0.0
	for _, p := range curve {
		if p.PortfolioValue > peak {
			peak = p.PortfolioValue
		}
		if peak > 0 {
			dd := (peak - p.PortfolioValue) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
