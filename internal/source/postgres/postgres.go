package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/selimk/pg2click/internal/config"
	"github.com/selimk/pg2click/internal/types"
)

// DB wraps the single source connection. It is owned exclusively by the
// orchestrator for the duration of a run.
type DB struct {
	conn      *pgx.Conn
	schema    string
	batchSize int
	logger    *zap.Logger
}

// Connect opens the source connection with the configured statement timeout.
// Transient failures are retried by the caller, not here.
func Connect(ctx context.Context, cfg config.SourceConfig, batchSize int, logger *zap.Logger) (*DB, error) {
	logger.Info("connecting to source",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema))

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password)
	pgcfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse source config: %w", err)
	}
	pgcfg.RuntimeParams["statement_timeout"] = strconv.Itoa(cfg.StatementTimeoutMs)

	conn, err := pgx.ConnectConfig(ctx, pgcfg)
	if err != nil {
		return nil, fmt.Errorf("connect to source: %w", err)
	}

	logger.Info("source connection established")
	return &DB{conn: conn, schema: cfg.Schema, batchSize: batchSize, logger: logger}, nil
}

// ListTables returns the table names under the source schema. Query failures
// propagate immediately.
func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	db.logger.Info("listing source tables", zap.String("schema", db.schema))

	rows, err := db.conn.Query(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name",
		db.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables in schema %s: %w", db.schema, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables in schema %s: %w", db.schema, err)
	}

	db.logger.Info("found source tables", zap.Strings("tables", tables))
	return tables, nil
}

// Extract starts a full-table read and returns a stream of fixed-size batches
// backed by the open cursor.
func (db *DB) Extract(ctx context.Context, table string) (types.BatchStream, error) {
	db.logger.Info("extracting table",
		zap.String("table", table),
		zap.Int("batch_size", db.batchSize))

	query := fmt.Sprintf("SELECT * FROM %s", pgx.Identifier{db.schema, table}.Sanitize())
	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("extract from %s.%s: %w", db.schema, table, err)
	}

	cols := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		cols = append(cols, fd.Name)
	}
	return &batchStream{rows: rows, cols: cols, size: db.batchSize}, nil
}

func (db *DB) Close(ctx context.Context) error {
	db.logger.Info("closing source connection")
	return db.conn.Close(ctx)
}

// batchStream accumulates up to size rows per step from an open cursor.
// Forward-only and not restartable; a mid-stream error terminates it.
type batchStream struct {
	rows  pgx.Rows
	cols  []string
	size  int
	batch types.Batch
	err   error
	done  bool
}

func (s *batchStream) Next(_ context.Context) bool {
	if s.done || s.err != nil {
		return false
	}

	batch := make(types.Batch, 0, s.size)
	for len(batch) < s.size && s.rows.Next() {
		vals, err := s.rows.Values()
		if err != nil {
			s.err = err
			s.done = true
			return false
		}
		row := make(types.Row, len(s.cols))
		for i, col := range s.cols {
			row[col] = normalizeValue(vals[i])
		}
		batch = append(batch, row)
	}
	if err := s.rows.Err(); err != nil {
		s.err = err
		s.done = true
		return false
	}
	if len(batch) == 0 {
		s.done = true
		return false
	}

	s.batch = batch
	return true
}

func (s *batchStream) Batch() types.Batch { return s.batch }
func (s *batchStream) Err() error         { return s.err }
func (s *batchStream) Close()             { s.rows.Close() }

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
