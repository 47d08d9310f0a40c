package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradebot/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:     "1 minute",
	types.FiveMinutes:   "5 minutes",
	types.ThirtyMinutes: "30 minutes",
	types.Hour:          "1 hour",
	types.FourHours:     "4 hours",
	types.Day:           "1 day",
	types.Week:          "1 week",
}

const getAggregates = `
SELECT time_bucket($1::interval, bucket) AS b,
       first(open, bucket), max(high), min(low), last(close, bucket), sum(volume)
FROM candles
WHERE ticker = $2 AND bucket >= $3 AND ($4::timestamptz IS NULL OR bucket < $4)
GROUP BY b
ORDER BY b`

type aggregatesParams struct {
	TimeBucket string
	Ticker     string
	Start      time.Time
	// End is nil for an open-ended range.
	End        *time.Time
}

type aggregateRow struct {
	Bucket time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

type queries struct {
	pool *pgxpool.Pool
}

func (q *queries) GetAggregates(ctx context.Context, arg aggregatesParams) ([]aggregateRow, error) {
	rows, err := q.pool.Query(ctx, getAggregates, arg.TimeBucket, arg.Ticker, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[aggregateRow])
}

// GetCandles returns the ticker's candles in [start, end) aggregated to interval.
// A zero end reads up to the latest stored candle.
func (db *Database) GetCandles(ctx context.Context, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, fmt.Errorf("%s: %w", interval, ErrIntervalNotSupported)
	}
	rows, err := db.candles.GetAggregates(ctx, aggregatesParams{
		TimeBucket: bucket,
		Ticker:     ticker,
		Start:      start,
		End:        upperBound(end),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", ticker, ErrNoCandles)
		}
		return nil, fmt.Errorf("query candles for %s: %w", ticker, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoCandles)
	}
	return convertCandles(rows, interval, ticker), nil
}

func upperBound(end time.Time) *time.Time {
	if end.IsZero() {
		return nil
	}
	return &end
}

func convertCandles(rows []aggregateRow, interval types.Interval, ticker string) []types.Candle {
	candles := make([]types.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, types.Candle{
			Ticker:    ticker,
			Open:      row.Open,
			Close:     row.Close,
			High:      row.High,
			Low:       row.Low,
			Volume:    row.Volume,
			Interval:  interval,
			Timestamp: row.Bucket,
		})
	}
	return candles
}
