package postgres

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SeedCSV stores a raw snapshot of the given CSV file under dataDir and
// bulk-inserts its rows into an all-text table in the source schema, creating
// the table when missing. Rows are copied in bounded chunks so a single copy
// never grows past batchSize.
func (db *DB) SeedCSV(ctx context.Context, table, csvPath, dataDir string, batchSize int) error {
	db.logger.Info("seeding source table from file",
		zap.String("table", table),
		zap.String("file", csvPath))

	header, records, err := readCSV(csvPath)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		return fmt.Errorf("seed file %s has no header", csvPath)
	}

	if err := snapshotFile(csvPath, dataDir, table); err != nil {
		return err
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = pgx.Identifier{h}.Sanitize() + " TEXT"
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{db.schema, table}.Sanitize(), strings.Join(cols, ", "))
	if _, err := db.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure table %s.%s: %w", db.schema, table, err)
	}

	total := 0
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		n, err := db.conn.CopyFrom(ctx,
			pgx.Identifier{db.schema, table},
			header,
			pgx.CopyFromRows(records[start:end]))
		if err != nil {
			return fmt.Errorf("bulk insert into %s.%s: %w", db.schema, table, err)
		}
		total += int(n)
		db.logger.Debug("copied seed chunk",
			zap.String("table", table),
			zap.Int("rows", int(n)),
			zap.Int("total", total))
	}

	db.logger.Info("seed completed",
		zap.String("table", table),
		zap.Int("rows", total))
	return nil
}

func readCSV(path string) ([]string, [][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}

	header := all[0]
	records := make([][]any, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		records = append(records, row)
	}
	return header, records, nil
}

// snapshotFile keeps a raw copy of the ingested file next to other processed
// data, named after the target table.
func snapshotFile(src, dataDir, table string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	dst := filepath.Join(dataDir, table+".csv")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", dst, err)
	}
	return nil
}
