package model

import "math"

// estimator evaluates one feature vector. Vectors are already checked against
// the artifact's feature count.
type estimator interface {
	classIndex(x []float64) int
	probabilities(x []float64) []float64
	supportsProbabilities() bool
}

type decisionTree struct {
	nodes []treeNode
	proba bool
}

func newDecisionTree(spec *treeSpec) *decisionTree {
	proba := true
	for _, n := range spec.Nodes {
		if n.Leaf && n.Distribution == nil {
			proba = false
			break
		}
	}
	return &decisionTree{nodes: spec.Nodes, proba: proba}
}

func (t *decisionTree) leaf(x []float64) treeNode {
	idx := 0
	for {
		node := t.nodes[idx]
		if node.Leaf {
			return node
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

func (t *decisionTree) classIndex(x []float64) int {
	return t.leaf(x).Class
}

func (t *decisionTree) probabilities(x []float64) []float64 {
	dist := t.leaf(x).Distribution
	out := make([]float64, len(dist))
	var total float64
	for _, w := range dist {
		total += w
	}
	if total <= 0 {
		return out
	}
	for i, w := range dist {
		out[i] = w / total
	}
	return out
}

func (t *decisionTree) supportsProbabilities() bool {
	return t.proba
}

type logisticRegression struct {
	coef      [][]float64
	intercept []float64
}

func newLogisticRegression(spec *logisticSpec) *logisticRegression {
	return &logisticRegression{coef: spec.Coef, intercept: spec.Intercept}
}

func (m *logisticRegression) classIndex(x []float64) int {
	return argmax(m.probabilities(x))
}

func (m *logisticRegression) probabilities(x []float64) []float64 {
	scores := make([]float64, len(m.coef))
	for i, row := range m.coef {
		s := m.intercept[i]
		for j, w := range row {
			s += w * x[j]
		}
		scores[i] = s
	}
	if len(scores) == 1 {
		p := sigmoid(scores[0])
		return []float64{1 - p, p}
	}
	return softmax(scores)
}

func (m *logisticRegression) supportsProbabilities() bool {
	return true
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softmax(scores []float64) []float64 {
	peak := scores[argmax(scores)]
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
