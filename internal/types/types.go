package types

import (
	"context"
	"time"
)

// Row is one source record, column name to scalar value. Values are whatever
// the driver produced: string, numeric, time.Time or nil.
type Row map[string]any

// Batch is a bounded, ordered group of rows fetched in one round trip. The
// column set is consistent within a batch.
type Batch []Row

// TransformedRecord is the canonical three-field unit written to the sink.
type TransformedRecord struct {
	Payload  string
	DateTime time.Time
	Tag      string
}

// BatchStream yields successive row batches from one table. Finite,
// forward-only, not restartable. Close must be called when the stream ends or
// errors so the underlying cursor is released.
type BatchStream interface {
	Next(ctx context.Context) bool
	Batch() Batch
	Err() error
	Close()
}

// Source is the relational store records are extracted from.
type Source interface {
	ListTables(ctx context.Context) ([]string, error)
	Extract(ctx context.Context, table string) (BatchStream, error)
	Close(ctx context.Context) error
}

// Sink is the analytical store transformed records are appended to.
type Sink interface {
	EnsureTable(ctx context.Context) error
	HasTag(ctx context.Context, tag string) (bool, error)
	Append(ctx context.Context, records []TransformedRecord) error
	Close() error
}
