// Package batch is the offline delivery adapter: it reads a CSV file, runs
// the prediction service over every row and writes the file back out with a
// prediction column appended.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/tabpredict/internal/logger"
	"github.com/samcharles93/tabpredict/internal/predict"
	"github.com/samcharles93/tabpredict/internal/tabular"
)

var (
	// ErrInputMissing is returned when the input file does not exist.
	ErrInputMissing = errors.New("input file not found")
	// ErrInputInvalid covers unreadable CSV, unknown encodings and bad options.
	ErrInputInvalid = errors.New("invalid input")
)

const (
	DefaultColumn     = "prediction"
	probabilityPrefix = "proba_"
	sourceLabel       = "batch"
)

type Options struct {
	InputPath  string
	OutputPath string
	// Column names the appended prediction column.
	Column string
	// Encoding is a WHATWG label such as "utf-8", "latin1" or "gbk".
	Encoding      string
	Probabilities bool
}

// Summary describes a finished run.
type Summary struct {
	Rows           int
	Columns        []string
	MissingColumns []string
	DroppedColumns []string
	Probabilities  bool
	Output         string
}

// Predictor is the part of predict.Service the runner calls.
type Predictor interface {
	Predict(ctx context.Context, batch tabular.Batch, opts predict.Options) (*predict.Outcome, error)
}

type Runner struct {
	service Predictor
}

func NewRunner(service Predictor) *Runner {
	return &Runner{service: service}
}

// Run processes one file. Nothing is written unless every row was predicted.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	log := logger.FromContext(ctx)
	if strings.TrimSpace(opts.InputPath) == "" {
		return nil, fmt.Errorf("%w: input path is empty", ErrInputInvalid)
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return nil, fmt.Errorf("%w: output path is empty", ErrInputInvalid)
	}
	column := opts.Column
	if strings.TrimSpace(column) == "" {
		column = DefaultColumn
	}

	s, err := readSheet(opts.InputPath, opts.Encoding)
	if err != nil {
		return nil, err
	}
	log.Debug("read input", "path", opts.InputPath, "rows", len(s.rows), "columns", s.header)

	out, err := r.service.Predict(ctx, s.batch(), predict.Options{
		WantProbabilities: opts.Probabilities,
		Source:            sourceLabel,
	})
	if err != nil {
		return nil, err
	}

	preds := out.Result.Predictions
	if len(preds) != len(s.rows) {
		return nil, fmt.Errorf("got %d predictions for %d rows", len(preds), len(s.rows))
	}
	cells := make([]string, len(preds))
	for i, p := range preds {
		cells[i] = formatCell(p)
	}
	if s.setColumn(column, cells) {
		log.Warn("overwriting existing input column", "column", column)
	}

	probs := out.Result.Probabilities
	if probs != nil {
		for k, class := range out.Classes {
			vals := make([]string, len(probs))
			for i, row := range probs {
				if k < len(row) {
					vals[i] = formatCell(row[k])
				}
			}
			name := probabilityPrefix + formatCell(class)
			if s.setColumn(name, vals) {
				log.Warn("overwriting existing input column", "column", name)
			}
		}
	}

	if err := writeSheet(opts.OutputPath, s); err != nil {
		return nil, err
	}
	log.Info("wrote predictions", "path", opts.OutputPath, "rows", len(s.rows), "column", column)

	return &Summary{
		Rows:           len(s.rows),
		Columns:        s.rawHeader,
		MissingColumns: out.Report.Missing,
		DroppedColumns: out.Report.Dropped,
		Probabilities:  probs != nil,
		Output:         opts.OutputPath,
	}, nil
}
