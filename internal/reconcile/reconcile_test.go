package reconcile

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/samcharles93/tabpredict/internal/model"
	"github.com/samcharles93/tabpredict/internal/tabular"
)

func TestReconcileSynthesizesMissingColumn(t *testing.T) {
	t.Parallel()

	batch := tabular.Batch{tabular.NewRecord("a", 1.0, "b", 2.0)}
	table, report := Reconcile(batch, model.Schema{"a", "b", "c"}, true)

	want := []map[string]any{{"a": 1.0, "b": 2.0, "c": 0.0}}
	if got := recordsAsMaps(table); !reflect.DeepEqual(got, want) {
		t.Fatalf("table = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(table.Columns, []string{"a", "b", "c"}) {
		t.Fatalf("columns = %v", table.Columns)
	}
	if !reflect.DeepEqual(report.Missing, []string{"c"}) || report.Dropped != nil {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestReconcileWithoutSchemaKeepsInput(t *testing.T) {
	t.Parallel()

	batch := tabular.Batch{tabular.NewRecord("a", 1.0)}
	table, report := Reconcile(batch, nil, false)

	want := []map[string]any{{"a": 1.0}}
	if got := recordsAsMaps(table); !reflect.DeepEqual(got, want) {
		t.Fatalf("table = %v, want %v", got, want)
	}
	if report.Missing != nil || report.Dropped != nil {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestReconcileWithoutSchemaFirstSeenOrderAndFill(t *testing.T) {
	t.Parallel()

	batch := tabular.Batch{
		tabular.NewRecord("b", 1.0, "a", nil),
		tabular.NewRecord("c", "x", "b", 2.0),
	}
	table, _ := Reconcile(batch, nil, false)
	if !reflect.DeepEqual(table.Columns, []string{"b", "a", "c"}) {
		t.Fatalf("columns = %v", table.Columns)
	}
	want := [][]any{{1.0, 0.0, 0.0}, {2.0, 0.0, "x"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("rows = %v, want %v", table.Rows, want)
	}
}

func TestReconcileProjectsToSchemaOrder(t *testing.T) {
	t.Parallel()

	batch := tabular.Batch{
		tabular.NewRecord("extra", "z", "c", 3.0, "a", nil),
		tabular.NewRecord("b", 5.0),
	}
	table, report := Reconcile(batch, model.Schema{"a", "b", "c"}, true)
	want := [][]any{{0.0, 0.0, 3.0}, {0.0, 5.0, 0.0}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("rows = %v, want %v", table.Rows, want)
	}
	if report.Missing != nil {
		t.Fatalf("no schema column is absent from the whole batch, got missing %v", report.Missing)
	}
	if !reflect.DeepEqual(report.Dropped, []string{"extra"}) {
		t.Fatalf("dropped = %v", report.Dropped)
	}
}

func TestReconcileProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	names := []string{"a", "b", "c", "d", "e", "f"}
	for iter := 0; iter < 500; iter++ {
		batch := randomBatch(rng, names)
		schema := randomSchema(rng, names)
		hasSchema := rng.IntN(4) != 0

		table, _ := Reconcile(batch, schema, hasSchema)
		if len(table.Rows) != len(batch) {
			t.Fatalf("iter %d: %d rows for %d records", iter, len(table.Rows), len(batch))
		}
		if hasSchema && !reflect.DeepEqual(table.Columns, []string(schema)) {
			t.Fatalf("iter %d: columns %v, schema %v", iter, table.Columns, schema)
		}
		if !hasSchema && !reflect.DeepEqual(table.Columns, batch.Columns()) {
			t.Fatalf("iter %d: columns %v, observed %v", iter, table.Columns, batch.Columns())
		}
		observed := make(map[string]bool)
		for _, c := range batch.Columns() {
			observed[c] = true
		}
		for i, row := range table.Rows {
			if len(row) != len(table.Columns) {
				t.Fatalf("iter %d row %d: width %d", iter, i, len(row))
			}
			for j, v := range row {
				if v == nil {
					t.Fatalf("iter %d row %d: nil cell in column %q", iter, i, table.Columns[j])
				}
				if !observed[table.Columns[j]] && v != DefaultValue {
					t.Fatalf("iter %d row %d: absent column %q = %v", iter, i, table.Columns[j], v)
				}
			}
		}
	}
}

func randomBatch(rng *rand.Rand, names []string) tabular.Batch {
	batch := make(tabular.Batch, 1+rng.IntN(5))
	for i := range batch {
		var rec tabular.Record
		for _, idx := range rng.Perm(len(names))[:rng.IntN(len(names))] {
			switch rng.IntN(3) {
			case 0:
				rec.Set(names[idx], nil)
			case 1:
				rec.Set(names[idx], fmt.Sprintf("v%d", rng.IntN(9)))
			default:
				rec.Set(names[idx], float64(rng.IntN(100)))
			}
		}
		batch[i] = rec
	}
	return batch
}

func randomSchema(rng *rand.Rand, names []string) model.Schema {
	var schema model.Schema
	for _, idx := range rng.Perm(len(names))[:1+rng.IntN(len(names)-1)] {
		schema = append(schema, names[idx])
	}
	return schema
}

func recordsAsMaps(table tabular.Table) []map[string]any {
	var out []map[string]any
	for _, rec := range table.Records() {
		out = append(out, rec.Map())
	}
	return out
}
