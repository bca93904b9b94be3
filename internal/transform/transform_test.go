package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/selimk/pg2click/internal/types"
	"github.com/selimk/pg2click/internal/util"
)

func decodePayload(t *testing.T, payload string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(util.UnescapeSingleQuotes(payload)), &m))
	return m
}

func TestApplyEmptyBatch(t *testing.T) {
	tr := New(zap.NewNop())
	out := tr.Apply(types.Batch{}, "orders")
	require.Empty(t, out)
}

func TestCleanDropsNullRecords(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{
		{"name": "Alice", "age": 30},
		{"name": "Bob", "age": nil},
		{"name": nil, "age": 25},
	}
	out := tr.clean(batch)
	require.Len(t, out, 1)
	require.Equal(t, "Alice", out[0]["name"])
}

func TestNormalizeLowercasesAndFormatsTimestamps(t *testing.T) {
	tr := New(zap.NewNop())
	ts := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	batch := types.Batch{{"name": "ALICE", "created": ts, "n": 7}}
	out := tr.normalize(batch)
	require.Equal(t, "alice", out[0]["name"])
	require.Equal(t, "2024-03-15 09:30:00", out[0]["created"])
	require.Equal(t, 7, out[0]["n"])
}

// Normalization after cleaning must neither reintroduce nulls nor change the
// row count relative to cleaning alone.
func TestCleanThenNormalizeKeepsRowCountAndNulls(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{
		{"a": "X", "b": nil},
		{"a": "Y", "b": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"a": "Z", "b": "keep"},
	}
	cleaned := tr.clean(batch)
	normalized := tr.normalize(cleaned)
	require.Len(t, normalized, len(cleaned))
	for _, row := range normalized {
		for k, v := range row {
			require.NotNil(t, v, "column %s", k)
		}
	}
}

func TestAggregateGroupsByCategory(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{
		{"category": "a", "amount": 500.0, "extra": "x"},
		{"category": "b", "amount": 10.0, "extra": "y"},
		{"category": "a", "amount": 1.5, "extra": "z"},
	}
	out := tr.aggregate(batch)
	require.Len(t, out, 2)
	require.Equal(t, types.Row{"category": "a", "amount": 501.5}, out[0])
	require.Equal(t, types.Row{"category": "b", "amount": 10.0}, out[1])
}

func TestAggregateSkippedWithoutBothColumns(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{{"category": "a", "name": "x"}, {"category": "b", "name": "y"}}
	out := tr.aggregate(batch)
	require.Equal(t, batch, out)
}

func TestFilterActive(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{
		{"id": 1, "status": "active"},
		{"id": 2, "status": "inactive"},
		{"id": 3, "status": "active"},
	}
	out := tr.filterActive(batch)
	require.Len(t, out, 2)

	noStatus := types.Batch{{"id": 1}, {"id": 2}}
	require.Equal(t, noStatus, tr.filterActive(noStatus))
}

func TestConvertTypesNumericColumns(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{
		{"price": "10.5", "label": "10"},
		{"price": "3", "label": "abc"},
	}
	out := tr.convertTypes(batch)
	// price converts fully, label aborts on the first incompatible value.
	require.Equal(t, 10.5, out[0]["price"])
	require.Equal(t, 3.0, out[1]["price"])
	require.Equal(t, "10", out[0]["label"])
	require.Equal(t, "abc", out[1]["label"])
}

func TestConvertTypesDateColumns(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{
		{"date_shipped": "05/01/2024", "note": "n"},
		{"date_shipped": "not a date", "note": "n"},
	}
	out := tr.convertTypes(batch)
	// Day-first: 05/01/2024 is January 5th.
	require.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), out[0]["date_shipped"])
	require.Nil(t, out[1]["date_shipped"])
}

func TestDeduplicate(t *testing.T) {
	batch := types.Batch{
		{"a": 1, "b": "x"},
		{"a": 1, "b": "x"},
		{"a": 1, "b": "y"},
	}
	out := Deduplicate(batch)
	require.Len(t, out, 2)
}

func TestMapFieldsRenames(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{{"old_column_name": 1, "other": 2}}
	out := tr.mapFields(batch)
	require.Equal(t, types.Row{"new_column_name": 1, "other": 2}, out[0])
}

func TestValidateAmountBoundaries(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{
		{"amount": 0.0},
		{"amount": 1_000_000.0},
		{"amount": -0.01},
		{"amount": 1_000_000.01},
	}
	out := tr.validate(batch)
	require.Len(t, out, 2)
	require.Equal(t, 0.0, out[0]["amount"])
	require.Equal(t, 1_000_000.0, out[1]["amount"])
}

func TestPayloadRoundTrip(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{{"name": "o'brien", "amount": 42.0}}
	out := tr.attachMetadata(batch, "people")
	require.Len(t, out, 1)
	require.NotContains(t, out[0].Payload, `"o'`)

	m := decodePayload(t, out[0].Payload)
	require.Equal(t, "o'brien", m["name"])
	require.Equal(t, 42.0, m["amount"])
}

func TestAttachMetadataSynthesizesDateTime(t *testing.T) {
	tr := New(zap.NewNop())
	before := time.Now()
	out := tr.attachMetadata(types.Batch{{"x": 1}}, "t")
	require.Len(t, out, 1)
	require.Equal(t, "t", out[0].Tag)
	require.False(t, out[0].DateTime.IsZero())
	require.False(t, out[0].DateTime.Before(before.Add(-time.Second)))
}

func TestAttachMetadataKeepsExistingDateTime(t *testing.T) {
	tr := New(zap.NewNop())
	ts := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	out := tr.attachMetadata(types.Batch{{"date_time": ts}}, "t")
	require.Equal(t, ts, out[0].DateTime)

	out = tr.attachMetadata(types.Batch{{"date_time": "2023-07-01 12:00:00"}}, "t")
	require.Equal(t, ts, out[0].DateTime)
}

// The canonical stage-ordering scenario: aggregation runs before the status
// filter and projects status away, so the filter becomes a no-op and the
// aggregated row survives with the sum over both input rows.
func TestApplyOrdersScenario(t *testing.T) {
	tr := New(zap.NewNop())
	batch := types.Batch{
		{"status": "active", "amount": 500.0, "category": "a", "date_created": "2024-01-05"},
		{"status": "inactive", "amount": 10.0, "category": "a", "date_created": "2024-01-06"},
	}
	out := tr.Apply(batch, "orders")
	require.Len(t, out, 1)
	require.Equal(t, "orders", out[0].Tag)
	require.False(t, out[0].DateTime.IsZero())

	m := decodePayload(t, out[0].Payload)
	require.Equal(t, "a", m["category"])
	require.Equal(t, 510.0, m["amount"])
	require.NotContains(t, m, "status")
	require.NotContains(t, m, "date_created")
}

func TestParseDayFirst(t *testing.T) {
	ts, ok := ParseDayFirst("31/12/2023")
	require.True(t, ok)
	require.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), ts)

	ts, ok = ParseDayFirst("2023-12-31 10:20:30")
	require.True(t, ok)
	require.Equal(t, time.Date(2023, 12, 31, 10, 20, 30, 0, time.UTC), ts)

	_, ok = ParseDayFirst("32/13/2023")
	require.False(t, ok)
}
