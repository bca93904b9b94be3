package transform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selimk/pg2click/internal/types"
	"github.com/selimk/pg2click/internal/util"
)

// TimeLayout is the canonical formatting applied to every timestamp value.
const TimeLayout = "2006-01-02 15:04:05"

// Transformer applies the fixed stage sequence to extracted batches. It keeps
// no state between batches.
type Transformer struct {
	logger  *zap.Logger
	renames map[string]string
}

func New(logger *zap.Logger) *Transformer {
	return &Transformer{
		logger: logger,
		// Placeholder rename table, extend per deployment.
		renames: map[string]string{"old_column_name": "new_column_name"},
	}
}

// Apply runs every stage in order and stamps the survivors with provenance
// metadata. Later stages see the effects of earlier ones; the ordering is part
// of the contract (aggregation runs before the status filter, so aggregated
// batches are never filtered by status). Stages never fail: values that resist
// coercion are kept or nulled, never raised.
func (t *Transformer) Apply(batch types.Batch, table string) []types.TransformedRecord {
	t.logger.Debug("starting transformation",
		zap.String("table", table),
		zap.Int("rows", len(batch)))

	batch = t.clean(batch)
	batch = t.normalize(batch)
	batch = t.aggregate(batch)
	batch = t.filterActive(batch)
	batch = t.convertTypes(batch)
	batch = Deduplicate(batch)
	batch = t.mapFields(batch)
	batch = t.validate(batch)
	out := t.attachMetadata(batch, table)

	t.logger.Debug("transformation completed",
		zap.String("table", table),
		zap.Int("rows_out", len(out)))
	return out
}

// clean drops every record containing a null field.
func (t *Transformer) clean(batch types.Batch) types.Batch {
	out := make(types.Batch, 0, len(batch))
	for _, row := range batch {
		if !hasNull(row) {
			out = append(out, row)
		}
	}
	t.logger.Debug("cleaned batch", zap.Int("rows", len(out)), zap.Int("dropped", len(batch)-len(out)))
	return out
}

func hasNull(row types.Row) bool {
	for _, v := range row {
		if v == nil {
			return true
		}
	}
	return false
}

// normalize lowercases string values and reformats timestamp values to the
// canonical layout.
func (t *Transformer) normalize(batch types.Batch) types.Batch {
	out := make(types.Batch, 0, len(batch))
	for _, row := range batch {
		nr := make(types.Row, len(row))
		for k, v := range row {
			switch tv := v.(type) {
			case string:
				nr[k] = strings.ToLower(tv)
			case []byte:
				nr[k] = strings.ToLower(string(tv))
			case time.Time:
				nr[k] = tv.Format(TimeLayout)
			default:
				nr[k] = v
			}
		}
		out = append(out, nr)
	}
	return out
}

// aggregate groups by category and sums amount when both columns are present
// across the whole batch. All other fields are dropped by this stage.
func (t *Transformer) aggregate(batch types.Batch) types.Batch {
	if len(batch) == 0 || !hasColumn(batch, "category") || !hasColumn(batch, "amount") {
		return batch
	}

	sums := make(map[string]float64)
	keys := make([]string, 0)
	for _, row := range batch {
		cat := util.ToString(row["category"])
		if _, seen := sums[cat]; !seen {
			keys = append(keys, cat)
		}
		amt, _ := toFloat(row["amount"])
		sums[cat] += amt
	}
	sort.Strings(keys)

	out := make(types.Batch, 0, len(keys))
	for _, cat := range keys {
		out = append(out, types.Row{"category": cat, "amount": sums[cat]})
	}
	t.logger.Debug("aggregated batch", zap.Int("groups", len(out)))
	return out
}

// filterActive keeps only records with status "active" when a status column
// exists.
func (t *Transformer) filterActive(batch types.Batch) types.Batch {
	if !hasColumn(batch, "status") {
		return batch
	}
	out := make(types.Batch, 0, len(batch))
	for _, row := range batch {
		if util.ToString(row["status"]) == "active" {
			out = append(out, row)
		}
	}
	t.logger.Debug("filtered batch", zap.Int("rows", len(out)), zap.Int("dropped", len(batch)-len(out)))
	return out
}

// convertTypes attempts numeric conversion for text columns (aborted for the
// whole column by the first incompatible value) and day-first date parsing for
// columns whose name contains "date" (unparseable values become null).
func (t *Transformer) convertTypes(batch types.Batch) types.Batch {
	if len(batch) == 0 {
		return batch
	}
	cols := columns(batch)

	for _, col := range cols {
		if allStrings(batch, col) {
			converted := make([]float64, len(batch))
			ok := true
			for i, row := range batch {
				f, err := strconv.ParseFloat(row[col].(string), 64)
				if err != nil {
					ok = false
					break
				}
				converted[i] = f
			}
			if ok {
				for i, row := range batch {
					row[col] = converted[i]
				}
			}
		}
	}

	for _, col := range cols {
		if !strings.Contains(col, "date") {
			continue
		}
		for _, row := range batch {
			switch v := row[col].(type) {
			case time.Time:
			case string:
				if ts, ok := ParseDayFirst(v); ok {
					row[col] = ts
				} else {
					row[col] = nil
				}
			default:
				row[col] = nil
			}
		}
	}
	return batch
}

// Deduplicate removes exact-duplicate records, keeping first occurrences.
func Deduplicate(batch types.Batch) types.Batch {
	seen := make(map[string]struct{}, len(batch))
	out := make(types.Batch, 0, len(batch))
	for _, row := range batch {
		fp := fingerprint(row)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, row)
	}
	return out
}

func fingerprint(row types.Row) string {
	var b strings.Builder
	for _, k := range util.SortedKeys(row) {
		fmt.Fprintf(&b, "%s=%v(%T);", k, row[k], row[k])
	}
	return b.String()
}

// mapFields renames columns per the static rename table.
func (t *Transformer) mapFields(batch types.Batch) types.Batch {
	for _, row := range batch {
		for old, renamed := range t.renames {
			if v, ok := row[old]; ok {
				delete(row, old)
				row[renamed] = v
			}
		}
	}
	return batch
}

// validate keeps records whose amount lies in [0, 1000000] when an amount
// column exists. Records whose amount resists numeric coercion are dropped.
func (t *Transformer) validate(batch types.Batch) types.Batch {
	if !hasColumn(batch, "amount") {
		return batch
	}
	out := make(types.Batch, 0, len(batch))
	for _, row := range batch {
		amt, ok := toFloat(row["amount"])
		if ok && amt >= 0 && amt <= 1_000_000 {
			out = append(out, row)
		}
	}
	t.logger.Debug("validated batch", zap.Int("rows", len(out)), zap.Int("dropped", len(batch)-len(out)))
	return out
}

// attachMetadata serializes each surviving record into the canonical
// three-field shape: payload, date_time, tag.
func (t *Transformer) attachMetadata(batch types.Batch, table string) []types.TransformedRecord {
	out := make([]types.TransformedRecord, 0, len(batch))
	now := time.Now()
	for _, row := range batch {
		payload, err := json.Marshal(row)
		if err != nil {
			// Rows are maps of scalars, marshal only fails on exotic values.
			payload = []byte(fmt.Sprintf("%q", fmt.Sprint(row)))
		}
		ts := now
		if v, ok := row["date_time"]; ok {
			ts = coerceTime(v, now)
		}
		out = append(out, types.TransformedRecord{
			Payload:  util.EscapeSingleQuotes(string(payload)),
			DateTime: ts,
			Tag:      table,
		})
	}
	return out
}

func coerceTime(v any, fallback time.Time) time.Time {
	switch tv := v.(type) {
	case time.Time:
		return tv
	case string:
		if ts, ok := ParseDayFirst(tv); ok {
			return ts
		}
	}
	return fallback
}

// ParseDayFirst parses a date or timestamp string, resolving ambiguous
// numeric dates day-first.
func ParseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	layouts := []string{
		TimeLayout,
		time.RFC3339,
		"2006-01-02",
		"02/01/2006 15:04:05",
		"02/01/2006",
		"02-01-2006 15:04:05",
		"02-01-2006",
		"02.01.2006",
		"2/1/2006",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func hasColumn(batch types.Batch, col string) bool {
	if len(batch) == 0 {
		return false
	}
	for _, row := range batch {
		if _, ok := row[col]; !ok {
			return false
		}
	}
	return true
}

func columns(batch types.Batch) []string {
	return util.SortedKeys(batch[0])
}

func allStrings(batch types.Batch, col string) bool {
	for _, row := range batch {
		if _, ok := row[col].(string); !ok {
			return false
		}
	}
	return len(batch) > 0
}

func toFloat(v any) (float64, bool) {
	switch tv := v.(type) {
	case float64:
		return tv, true
	case float32:
		return float64(tv), true
	case int:
		return float64(tv), true
	case int8:
		return float64(tv), true
	case int16:
		return float64(tv), true
	case int32:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case uint:
		return float64(tv), true
	case uint8:
		return float64(tv), true
	case uint16:
		return float64(tv), true
	case uint32:
		return float64(tv), true
	case uint64:
		return float64(tv), true
	case string:
		f, err := strconv.ParseFloat(tv, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
