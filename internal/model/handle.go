package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samcharles93/tabpredict/internal/tabular"
)

// Schema is the ordered list of feature names a model expects.
type Schema []string

// Capabilities is resolved once when the artifact is loaded.
type Capabilities struct {
	HasSchema        bool `json:"has_schema"`
	HasProbabilities bool `json:"has_probabilities"`
}

// Handle owns one loaded classifier for the lifetime of a single invocation.
// It is read-only after Load.
type Handle struct {
	path      string
	kind      string
	schema    Schema
	nFeatures int
	classes   []any
	caps      Capabilities
	est       estimator
}

// Load reads and validates the artifact at path.
func Load(path string) (*Handle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: model path is empty", ErrArtifactMissing)
	}
	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactCorrupt, path, err)
	}
	a, err := decodeArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactCorrupt, path, err)
	}

	h := &Handle{
		path:      path,
		kind:      a.Kind,
		schema:    Schema(a.FeatureNames),
		nFeatures: a.NFeatures,
		classes:   a.Classes,
	}
	switch a.Kind {
	case KindDecisionTree:
		h.est = newDecisionTree(a.Tree)
	case KindLogisticRegression:
		h.est = newLogisticRegression(a.Logistic)
	}
	h.caps = Capabilities{
		HasSchema:        len(h.schema) > 0,
		HasProbabilities: h.est.supportsProbabilities(),
	}
	return h, nil
}

func (h *Handle) Path() string { return h.path }
func (h *Handle) Kind() string { return h.kind }

func (h *Handle) Capabilities() Capabilities {
	return h.caps
}

// Schema returns the declared feature names; ok is false when the artifact
// declares none.
func (h *Handle) Schema() (Schema, bool) {
	if !h.caps.HasSchema {
		return nil, false
	}
	return append(Schema(nil), h.schema...), true
}

// Classes returns the class labels in probability-vector order.
func (h *Handle) Classes() []any {
	return append([]any(nil), h.classes...)
}

// NumFeatures is the input width the classifier was trained on.
func (h *Handle) NumFeatures() int {
	return h.nFeatures
}

// Predict returns one class label per table row. Every error wraps
// ErrInferenceFailure.
func (h *Handle) Predict(table tabular.Table) ([]any, error) {
	if h.est == nil {
		return nil, fmt.Errorf("%w: %w", ErrInferenceFailure, errHandleClosed)
	}
	x, err := h.matrix(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInferenceFailure, err)
	}
	out := make([]any, len(x))
	for i, row := range x {
		out[i] = h.classes[h.est.classIndex(row)]
	}
	return out, nil
}

// PredictProbabilities returns one vector per row, ordered as Classes.
func (h *Handle) PredictProbabilities(table tabular.Table) ([][]float64, error) {
	if h.est == nil {
		return nil, fmt.Errorf("%w: %w", ErrProbabilityUnavailable, errHandleClosed)
	}
	if !h.caps.HasProbabilities {
		return nil, fmt.Errorf("%w: %s model has no class distribution", ErrProbabilityUnavailable, h.kind)
	}
	x, err := h.matrix(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProbabilityUnavailable, err)
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = h.est.probabilities(row)
	}
	return out, nil
}

// Close releases the classifier. Later predictions fail.
func (h *Handle) Close() error {
	h.est = nil
	return nil
}

func (h *Handle) matrix(table tabular.Table) ([][]float64, error) {
	if len(table.Columns) != h.nFeatures {
		return nil, fmt.Errorf("input has %d features, model expects %d", len(table.Columns), h.nFeatures)
	}
	x := make([][]float64, len(table.Rows))
	for i, row := range table.Rows {
		if len(row) != h.nFeatures {
			return nil, fmt.Errorf("row %d has %d values, model expects %d", i, len(row), h.nFeatures)
		}
		vec := make([]float64, len(row))
		for j, v := range row {
			f, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, table.Columns[j], err)
			}
			vec[j] = f
		}
		x[i] = vec
	}
	return x, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("could not convert string %q to float", t)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
