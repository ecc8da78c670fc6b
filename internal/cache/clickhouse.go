package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// Archive persists every observed swap into ClickHouse for historical
// queries and the analytics agent.
type Archive struct {
	conn driver.Conn
}

// ArchiveConfig holds ClickHouse connection settings.
type ArchiveConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

func NewArchive(cfg ArchiveConfig) (*Archive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")
	}

	return &Archive{conn: conn}, nil
}

// InsertSwaps writes a batch of swap records. Empty batches are a no-op.
func (a *Archive) InsertSwaps(ctx context.Context, records []SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO swaps (
			tx_hash, user, token_in, token_out,
			amount_in, amount_out, block_number, log_index, timestamp
		)`)
	if err != nil {
		return fmt.Errorf("prepare swap batch: %w", err)
	}

	for _, rec := range records {
		amountIn, err := strconv.ParseFloat(rec.AmountIn, 64)
		if err != nil {
			return fmt.Errorf("bad amount_in %q: %w", rec.AmountIn, err)
		}
		amountOut, err := strconv.ParseFloat(rec.AmountOut, 64)
		if err != nil {
			return fmt.Errorf("bad amount_out %q: %w", rec.AmountOut, err)
		}

		if err := batch.Append(
			rec.TxHash,
			rec.User,
			rec.TokenIn,
			rec.TokenOut,
			amountIn,
			amountOut,
			rec.BlockNumber,
			rec.LogIndex,
			rec.Timestamp,
		); err != nil {
			return fmt.Errorf("append swap row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert swaps: %w", err)
	}
	return nil
}

// Health pings the connection.
func (a *Archive) Health(ctx context.Context) error {
	return a.conn.Ping(ctx)
}

// Close releases the connection pool.
func (a *Archive) Close() error {
	return a.conn.Close()
}
