package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dogebot/internal/domain/models"
	pkgclickhouse "dogebot/pkg/clickhouse"
)

// CandleArchiveSchema creates the archive table. Fed to Client.InitSchema at
// startup; ReplacingMergeTree deduplicates re-fetched bars.
var CandleArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS candles (
		product_id  LowCardinality(String),
		granularity LowCardinality(String),
		start       DateTime,
		open        Float64,
		high        Float64,
		low         Float64,
		close       Float64,
		volume      Float64,
		fetched_at  DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(fetched_at)
	ORDER BY (product_id, granularity, start)`,
}

// ClickHouseCandleArchive stores fetched closed candles for offline research.
type ClickHouseCandleArchive struct {
	client *pkgclickhouse.Client
	table  string
}

func NewClickHouseCandleArchive(client *pkgclickhouse.Client, table string) *ClickHouseCandleArchive {
	if table == "" {
		table = "candles"
	}
	return &ClickHouseCandleArchive{client: client, table: table}
}

func (a *ClickHouseCandleArchive) StoreCandles(ctx context.Context, productID string, g models.Granularity, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	// Multi-row VALUES insert to keep one round trip per poll.
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (product_id, granularity, start, open, high, low, close, volume) VALUES ", a.table)
	args := make([]interface{}, 0, len(candles)*8)
	for i, c := range candles {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			productID,
			string(g),
			time.Unix(c.Start, 0).UTC(),
			c.Open,
			c.High,
			c.Low,
			c.Close,
			c.Volume,
		)
	}

	if _, err := a.client.DB().ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("archive candles: %w", err)
	}
	return nil
}

func (a *ClickHouseCandleArchive) Close() error {
	return a.client.Close()
}
