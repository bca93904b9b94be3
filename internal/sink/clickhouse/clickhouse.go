package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/selimk/pg2click/internal/config"
	"github.com/selimk/pg2click/internal/types"
)

// Client wraps the sink connection and the fixed destination table.
type Client struct {
	conn   driver.Conn
	table  string
	logger *zap.Logger
}

// Connect opens the sink connection. TLS is on unless disabled; certificate
// verification is off unless turned on, which mirrors the environment this
// loads into and is a known production risk.
func Connect(ctx context.Context, cfg config.SinkConfig, logger *zap.Logger) (*Client, error) {
	logger.Info("connecting to sink",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("table", cfg.Table))

	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
	}
	if !cfg.NoTLS {
		opts.TLS = &tls.Config{InsecureSkipVerify: !cfg.VerifyCert}
		if !cfg.VerifyCert {
			logger.Warn("certificate verification disabled for sink connection")
		}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open sink connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping sink: %w", err)
	}

	logger.Info("sink connection established")
	return &Client{conn: conn, table: cfg.Table, logger: logger}, nil
}

// EnsureTable creates the destination table when missing. Safe to call every
// run.
func (c *Client) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			payload String,
			captured_at DateTime,
			tag String
		) ENGINE = MergeTree()
		ORDER BY captured_at`, c.table)
	if err := c.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure sink table %s: %w", c.table, err)
	}
	c.logger.Info("ensured sink table exists", zap.String("table", c.table))
	return nil
}

// HasTag reports whether any loaded record carries the given tag. This is the
// run's sole idempotency gate and it operates at whole-table granularity.
func (c *Client) HasTag(ctx context.Context, tag string) (bool, error) {
	var count uint64
	query := fmt.Sprintf("SELECT count() FROM %s WHERE tag = ?", c.table)
	if err := c.conn.QueryRow(ctx, query, tag).Scan(&count); err != nil {
		return false, fmt.Errorf("count records tagged %s: %w", tag, err)
	}
	c.logger.Debug("checked existing records",
		zap.String("tag", tag),
		zap.Uint64("count", count))
	return count > 0, nil
}

// Append writes the records in one multi-row insert. Not chunked internally;
// the caller keeps each call within the extraction batch size.
func (c *Client) Append(ctx context.Context, records []types.TransformedRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s (payload, captured_at, tag)", c.table))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", c.table, err)
	}
	for _, rec := range records {
		if err := batch.Append(rec.Payload, rec.DateTime, rec.Tag); err != nil {
			return fmt.Errorf("append record tagged %s: %w", rec.Tag, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert into %s: %w", c.table, err)
	}

	c.logger.Info("loaded batch into sink",
		zap.String("table", c.table),
		zap.Int("rows", len(records)))
	return nil
}

func (c *Client) Close() error {
	c.logger.Info("closing sink connection")
	return c.conn.Close()
}
