package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradebot/types"
)

// writeTradesCSVFile writes trade records to a CSV file at the given path.
func writeTradesCSVFile(path string, records []types.TradeRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return writeTradesCSV(f, records)
}

// writeTradesCSV writes one row per trade record to any io.Writer.
func writeTradesCSV(w io.Writer, records []types.TradeRecord) error {
	cw := csv.NewWriter(w)

	header := []string{
		"time", // RFC3339
		"instrument",
		"price",
		"decision",
		"quantity",
		"reason",
		"score",
		"cash_after",
		"positions_after", // symbol=qty;symbol=qty
		"portfolio_value",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Time.UTC().Format(time.RFC3339),
			r.Instrument,
			r.Price.String(),
			string(r.Decision),
			r.Quantity.String(),
			r.Reason,
			strconv.FormatFloat(r.Score, 'f', 6, 64),
			r.CashAfter.String(),
			formatPositions(r),
			r.PortfolioValue.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatPositions(r types.TradeRecord) string {
	symbols := make([]string, 0, len(r.PositionsAfter))
	for sym := range r.PositionsAfter {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	parts := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		parts = append(parts, sym+"="+r.PositionsAfter[sym].String())
	}
	return strings.Join(parts, ";")
}
