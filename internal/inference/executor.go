package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/tabpredict/internal/logger"
	"github.com/samcharles93/tabpredict/internal/model"
	"github.com/samcharles93/tabpredict/internal/tabular"
)

// Model is the part of a model handle the executor needs.
type Model interface {
	Capabilities() model.Capabilities
	Predict(table tabular.Table) ([]any, error)
	PredictProbabilities(table tabular.Table) ([][]float64, error)
}

// Result is safe to encode as JSON or CSV. Probabilities is nil when they
// were not requested, not supported, or could not be computed.
type Result struct {
	Predictions   []any       `json:"predictions"`
	Probabilities [][]float64 `json:"probabilities,omitempty"`
}

// Run predicts every row of table. Only the predict call can fail the run;
// a failed probability call is logged and the result carries predictions
// alone.
func Run(ctx context.Context, table tabular.Table, m Model, wantProbabilities bool) (*Result, error) {
	labels, err := predict(m, table)
	if err != nil {
		if !errors.Is(err, model.ErrInferenceFailure) {
			err = fmt.Errorf("%w: %w", model.ErrInferenceFailure, err)
		}
		return nil, err
	}
	if len(labels) != len(table.Rows) {
		return nil, fmt.Errorf("%w: model returned %d predictions for %d rows", model.ErrInferenceFailure, len(labels), len(table.Rows))
	}

	res := &Result{Predictions: make([]any, len(labels))}
	for i, label := range labels {
		res.Predictions[i] = NormalizeLabel(label)
	}

	if !wantProbabilities || !m.Capabilities().HasProbabilities {
		return res, nil
	}
	probs, err := probabilities(m, table)
	if err != nil {
		logger.FromContext(ctx).Warn("omitting probabilities", "error", err)
		return res, nil
	}
	res.Probabilities = probs
	return res, nil
}

func predict(m Model, table tabular.Table) (labels []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			labels = nil
			err = fmt.Errorf("%w: panic: %v", model.ErrInferenceFailure, r)
		}
	}()
	return m.Predict(table)
}

func probabilities(m Model, table tabular.Table) (probs [][]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			probs = nil
			err = fmt.Errorf("%w: panic: %v", model.ErrProbabilityUnavailable, r)
		}
	}()
	raw, err := m.PredictProbabilities(table)
	if err != nil {
		if !errors.Is(err, model.ErrProbabilityUnavailable) {
			err = fmt.Errorf("%w: %w", model.ErrProbabilityUnavailable, err)
		}
		return nil, err
	}
	if len(raw) != len(table.Rows) {
		return nil, fmt.Errorf("%w: got %d vectors for %d rows", model.ErrProbabilityUnavailable, len(raw), len(table.Rows))
	}
	out := make([][]float64, len(raw))
	for i, vec := range raw {
		out[i] = NormalizeProbabilities(vec)
	}
	return out, nil
}
