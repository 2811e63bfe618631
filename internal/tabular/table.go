package tabular

// Batch is an ordered sequence of records. Order only matters for matching
// outputs back to inputs.
type Batch []Record

// Columns returns every field name seen across the batch, in first-seen order.
func (b Batch) Columns() []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, rec := range b {
		for _, name := range rec.names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			cols = append(cols, name)
		}
	}
	return cols
}

// Table is a rectangular view of a batch: Rows[i][j] holds the value of
// Columns[j] for record i.
type Table struct {
	Columns []string
	Rows    [][]any
}

func (t Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of name, or -1.
func (t Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Records converts the table back into records in column order.
func (t Table) Records() Batch {
	out := make(Batch, len(t.Rows))
	for i, row := range t.Rows {
		var rec Record
		for j, name := range t.Columns {
			var v any
			if j < len(row) {
				v = row[j]
			}
			rec.Set(name, v)
		}
		out[i] = rec
	}
	return out
}
