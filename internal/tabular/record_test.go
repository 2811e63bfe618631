package tabular

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestRecordUnmarshalKeepsKeyOrder(t *testing.T) {
	t.Parallel()

	var rec Record
	if err := json.Unmarshal([]byte(`{"zeta":1,"alpha":"x","mid":null,"flag":true}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []string{"zeta", "alpha", "mid", "flag"}
	if !reflect.DeepEqual(rec.Names(), want) {
		t.Fatalf("names = %v, want %v", rec.Names(), want)
	}
	if v, _ := rec.Get("zeta"); v != 1.0 {
		t.Fatalf("zeta = %#v, want float64 1", v)
	}
	if v, ok := rec.Get("mid"); !ok || v != nil {
		t.Fatalf("mid = %#v (ok=%v), want present nil", v, ok)
	}
}

func TestRecordUnmarshalRejectsNestedValues(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"a":{"b":1}}`, `{"a":[1,2]}`, `[1]`} {
		var rec Record
		err := json.Unmarshal([]byte(body), &rec)
		if err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

func TestRecordMarshalRoundTripOrder(t *testing.T) {
	t.Parallel()

	rec := NewRecord("b", 2.0, "a", "x", "c", nil)
	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"b":2,"a":"x","c":null}` {
		t.Fatalf("unexpected json: %s", out)
	}
}

func TestBatchColumnsFirstSeen(t *testing.T) {
	t.Parallel()

	var batch Batch
	body := `[{"b":1,"a":2},{"c":3,"a":4},{"d":null,"b":5}]`
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"b", "a", "c", "d"}
	if got := batch.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
}

func TestFromMapSortsNames(t *testing.T) {
	t.Parallel()

	rec := FromMap(map[string]any{"y": 1.0, "x": 2.0})
	if got := rec.Names(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("names = %v", got)
	}
}

func TestTableRecords(t *testing.T) {
	t.Parallel()

	table := Table{Columns: []string{"a", "b"}, Rows: [][]any{{1.0, 0.0}}}
	recs := table.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if !reflect.DeepEqual(recs[0].Map(), map[string]any{"a": 1.0, "b": 0.0}) {
		t.Fatalf("unexpected record: %v", recs[0].Map())
	}
	if table.Column("b") != 1 || table.Column("z") != -1 {
		t.Fatalf("unexpected column lookup")
	}
}
