package model

import (
	"fmt"

	"github.com/goccy/go-json"
)

const (
	artifactFormat  = "tabpredict.classifier"
	artifactVersion = 1

	KindDecisionTree       = "decision_tree"
	KindLogisticRegression = "logistic_regression"
)

// artifact is the on-disk JSON form of a trained classifier.
type artifact struct {
	Format       string        `json:"format"`
	Version      int           `json:"version"`
	Kind         string        `json:"kind"`
	FeatureNames []string      `json:"feature_names,omitempty"`
	NFeatures    int           `json:"n_features,omitempty"`
	Classes      []any         `json:"classes"`
	Tree         *treeSpec     `json:"tree,omitempty"`
	Logistic     *logisticSpec `json:"logistic,omitempty"`
}

type treeSpec struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	Leaf         bool      `json:"leaf,omitempty"`
	Feature      int       `json:"feature,omitempty"`
	Threshold    float64   `json:"threshold,omitempty"`
	Left         int       `json:"left,omitempty"`
	Right        int       `json:"right,omitempty"`
	Class        int       `json:"class,omitempty"`
	Distribution []float64 `json:"distribution,omitempty"`
}

type logisticSpec struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

func decodeArtifact(data []byte) (*artifact, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *artifact) validate() error {
	if a.Format != artifactFormat {
		return fmt.Errorf("unknown format %q", a.Format)
	}
	if a.Version != artifactVersion {
		return fmt.Errorf("unsupported version %d", a.Version)
	}
	if len(a.Classes) == 0 {
		return fmt.Errorf("no classes declared")
	}
	for i, c := range a.Classes {
		switch c.(type) {
		case float64, string, bool:
		default:
			return fmt.Errorf("class %d: unsupported label type %T", i, c)
		}
	}
	if len(a.FeatureNames) > 0 {
		if a.NFeatures != 0 && a.NFeatures != len(a.FeatureNames) {
			return fmt.Errorf("n_features %d disagrees with %d feature_names", a.NFeatures, len(a.FeatureNames))
		}
		a.NFeatures = len(a.FeatureNames)
		seen := make(map[string]struct{}, len(a.FeatureNames))
		for _, name := range a.FeatureNames {
			if _, dup := seen[name]; dup {
				return fmt.Errorf("duplicate feature name %q", name)
			}
			seen[name] = struct{}{}
		}
	}
	if a.NFeatures <= 0 {
		return fmt.Errorf("n_features is required when feature_names is absent")
	}

	switch a.Kind {
	case KindDecisionTree:
		if a.Tree == nil {
			return fmt.Errorf("decision_tree artifact has no tree")
		}
		return a.Tree.validate(a.NFeatures, len(a.Classes))
	case KindLogisticRegression:
		if a.Logistic == nil {
			return fmt.Errorf("logistic_regression artifact has no logistic section")
		}
		return a.Logistic.validate(a.NFeatures, len(a.Classes))
	default:
		return fmt.Errorf("unknown kind %q", a.Kind)
	}
}

func (t *treeSpec) validate(nFeatures, nClasses int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if n.Class < 0 || n.Class >= nClasses {
				return fmt.Errorf("node %d: class %d out of range", i, n.Class)
			}
			if n.Distribution != nil && len(n.Distribution) != nClasses {
				return fmt.Errorf("node %d: distribution has %d entries, want %d", i, len(n.Distribution), nClasses)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			// Children always follow their parent in depth-first layout, which
			// also rules out cycles.
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d: child %d out of range", i, child)
			}
		}
	}
	return nil
}

func (l *logisticSpec) validate(nFeatures, nClasses int) error {
	rows := len(l.Coef)
	switch {
	case nClasses == 2 && rows == 1:
	case rows == nClasses && nClasses > 1:
	default:
		return fmt.Errorf("coef has %d rows for %d classes", rows, nClasses)
	}
	if len(l.Intercept) != rows {
		return fmt.Errorf("intercept has %d entries, want %d", len(l.Intercept), rows)
	}
	for i, row := range l.Coef {
		if len(row) != nFeatures {
			return fmt.Errorf("coef row %d has %d entries, want %d", i, len(row), nFeatures)
		}
	}
	return nil
}
