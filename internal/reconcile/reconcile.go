// Package reconcile aligns loosely structured input records with the feature
// schema a model was trained on.
//
// Columns the model expects but the input lacks are synthesized, and every
// missing or null cell is filled, with DefaultValue. This keeps inference
// available in a degraded mode instead of failing the request; predictions
// for rows with synthesized features may be less accurate.
package reconcile

import (
	"github.com/samcharles93/tabpredict/internal/model"
	"github.com/samcharles93/tabpredict/internal/tabular"
)

// DefaultValue fills absent columns and null cells.
const DefaultValue = 0.0

// Report lists what reconciliation changed about the input's column set.
type Report struct {
	// Missing are schema columns that no record carried.
	Missing []string
	// Dropped are observed columns outside the schema.
	Dropped []string
}

// Reconcile builds a table from batch. With a schema the table has exactly
// the schema's columns in schema order; without one it keeps every observed
// column in first-seen order. The row count always equals len(batch).
func Reconcile(batch tabular.Batch, schema model.Schema, hasSchema bool) (tabular.Table, Report) {
	observed := batch.Columns()
	var report Report

	columns := observed
	if hasSchema {
		columns = append([]string(nil), schema...)
		present := make(map[string]struct{}, len(observed))
		for _, c := range observed {
			present[c] = struct{}{}
		}
		wanted := make(map[string]struct{}, len(columns))
		for _, c := range columns {
			wanted[c] = struct{}{}
			if _, ok := present[c]; !ok {
				report.Missing = append(report.Missing, c)
			}
		}
		for _, c := range observed {
			if _, ok := wanted[c]; !ok {
				report.Dropped = append(report.Dropped, c)
			}
		}
	}

	rows := make([][]any, len(batch))
	for i, rec := range batch {
		row := make([]any, len(columns))
		for j, name := range columns {
			v, ok := rec.Get(name)
			if !ok || v == nil {
				v = DefaultValue
			}
			row[j] = v
		}
		rows[i] = row
	}
	return tabular.Table{Columns: columns, Rows: rows}, report
}
