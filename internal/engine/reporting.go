package engine

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"tradebot/internal/risk"
	"tradebot/types"

	"github.com/shopspring/decimal"
)

// tradingDaysPerYear annualizes the per-period Sharpe ratio.
const tradingDaysPerYear = 252

var hundred = decimal.NewFromInt(100)

type Report struct {
	// Meta / period info
	StartDate   time.Time
	EndDate     time.Time
	TotalPeriod time.Duration
	Records     int

	// Absolute performance
	InitialCash        decimal.Decimal
	FinalValue         decimal.Decimal
	NetProfit          decimal.Decimal
	TotalReturnPercent decimal.Decimal

	// Drawdown metrics
	MaxDrawdown         decimal.Decimal
	MaxDrawdownPercent  decimal.Decimal
	MaxDrawdownDuration time.Duration

	// Invalid when returns have no variance or there are fewer than two.
	SharpeRatio decimal.NullDecimal

	Counts TradeCounts
}

type TradeCounts struct {
	Buys         int
	Sells        int
	Holds        int
	RiskExits    int
	Liquidations int
	Skipped      int
}

// equityPoint is the portfolio value at the end of one replay timestamp.
type equityPoint struct {
	time  time.Time
	value decimal.Decimal
}

func generateReport(initialCash decimal.Decimal, records []types.TradeRecord) *Report {
	report := &Report{
		InitialCash: initialCash,
		FinalValue:  initialCash,
		Records:     len(records),
	}
	if len(records) > 0 {
		report.StartDate = records[0].Time
		report.EndDate = records[len(records)-1].Time
		report.TotalPeriod = report.EndDate.Sub(report.StartDate)
		report.FinalValue = records[len(records)-1].PortfolioValue
	}
	report.NetProfit = report.FinalValue.Sub(initialCash)
	curve := equityCurve(initialCash, records)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		report.TotalReturnPercent = calcTotalReturn(initialCash, report.FinalValue, &wg)
	}()
	go func() {
		report.MaxDrawdown, report.MaxDrawdownPercent, report.MaxDrawdownDuration = calcDrawdownMetrics(curve, &wg)
	}()
	go func() {
		report.SharpeRatio = calcSharpeRatio(curve, &wg)
	}()
	go func() {
		report.Counts = calcTradeCounts(records, &wg)
	}()
	wg.Wait()

	return report
}

// equityCurve starts at the initial cash and keeps the last portfolio value of
// each distinct timestamp, so instruments sharing a timestamp count once.
func equityCurve(initialCash decimal.Decimal, records []types.TradeRecord) []equityPoint {
	if len(records) == 0 {
		return nil
	}
	curve := []equityPoint{{time: records[0].Time, value: initialCash}}
	for i, r := range records {
		if i+1 < len(records) && records[i+1].Time.Equal(r.Time) {
			continue
		}
		curve = append(curve, equityPoint{time: r.Time, value: r.PortfolioValue})
	}
	return curve
}

func calcTotalReturn(initial, final decimal.Decimal, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if !initial.IsPositive() {
		return decimal.Zero
	}
	return final.Sub(initial).Div(initial).Mul(hundred)
}

func calcDrawdownMetrics(curve []equityPoint, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal, time.Duration) {
	defer wg.Done()

	if len(curve) == 0 {
		return decimal.Zero, decimal.Zero, 0
	}

	peak := curve[0].value
	peakTime := curve[0].time

	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	var maxDDDuration time.Duration

	for _, p := range curve {
		if p.value.GreaterThan(peak) {
			peak = p.value
			peakTime = p.time
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(p.value)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			maxDDPct = dd.Div(peak).Mul(hundred)
			maxDDDuration = p.time.Sub(peakTime)
		}
	}

	return maxDD, maxDDPct, maxDDDuration
}

// calcSharpeRatio is the mean over the sample standard deviation of
// period-over-period returns, annualized by sqrt(252), with no risk free rate.
func calcSharpeRatio(curve []equityPoint, wg *sync.WaitGroup) decimal.NullDecimal {
	defer wg.Done()

	returns := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].value
		if !prev.IsPositive() {
			continue
		}
		returns = append(returns, curve[i].value.Div(prev).Sub(decimal.NewFromInt(1)).InexactFloat64())
	}
	if len(returns) < 2 {
		return decimal.NullDecimal{}
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var varianceSum float64
	for _, r := range returns {
		diff := r - mean
		varianceSum += diff * diff
	}
	std := math.Sqrt(varianceSum / float64(len(returns)-1))
	if std == 0 || math.IsNaN(std) {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(decimal.NewFromFloat(mean / std * math.Sqrt(tradingDaysPerYear)))
}

func calcTradeCounts(records []types.TradeRecord, wg *sync.WaitGroup) TradeCounts {
	defer wg.Done()

	var c TradeCounts
	for _, r := range records {
		switch r.Decision {
		case types.DecisionBuy:
			c.Buys++
		case types.DecisionSell:
			c.Sells++
		default:
			c.Holds++
		}
		switch r.Reason {
		case string(risk.TriggerStopLoss), string(risk.TriggerTakeProfit):
			c.RiskExits++
		case ReasonDrawdown:
			if r.Decision == types.DecisionSell {
				c.Liquidations++
			}
		case ReasonInsufficientCash, ReasonInsufficientPosition, ReasonZeroQuantity:
			c.Skipped++
		}
	}
	return c
}

func printReport(w io.Writer, report *Report) {
	sharpe := "undefined"
	if report.SharpeRatio.Valid {
		sharpe = report.SharpeRatio.Decimal.StringFixed(4)
	}

	fmt.Fprintln(w, "===== Backtest Report =====")
	fmt.Fprintf(w, "Start Date:            %s\n", report.StartDate.Format("2006-01-02"))
	fmt.Fprintf(w, "End Date:              %s\n", report.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Period:          %d days\n", report.TotalPeriod/(24*time.Hour))
	fmt.Fprintf(w, "Records:               %d\n", report.Records)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Initial Cash:          %s\n", report.InitialCash.StringFixed(2))
	fmt.Fprintf(w, "Final Value:           %s\n", report.FinalValue.StringFixed(2))
	fmt.Fprintf(w, "Net Profit:            %s\n", report.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "Total Return %%:        %s\n", report.TotalReturnPercent.StringFixed(2))

	fmt.Fprintln(w, "\n-- Drawdown Metrics --")
	fmt.Fprintf(w, "Max Drawdown:          %s\n", report.MaxDrawdown.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown %%:        %s\n", report.MaxDrawdownPercent.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown Duration: %v\n", report.MaxDrawdownDuration)

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %s\n", sharpe)

	fmt.Fprintln(w, "\n-- Decisions --")
	fmt.Fprintf(w, "Buys:                  %d\n", report.Counts.Buys)
	fmt.Fprintf(w, "Sells:                 %d\n", report.Counts.Sells)
	fmt.Fprintf(w, "Holds:                 %d\n", report.Counts.Holds)
	fmt.Fprintf(w, "Risk Exits:            %d\n", report.Counts.RiskExits)
	fmt.Fprintf(w, "Liquidations:          %d\n", report.Counts.Liquidations)
	fmt.Fprintf(w, "Skipped Trades:        %d\n", report.Counts.Skipped)

	fmt.Fprintln(w, "===========================")
}
