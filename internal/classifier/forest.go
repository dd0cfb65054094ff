// internal/classifier/forest.go
package classifier

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Node mirrors one node of XGBoost's JSON model dump
// (booster.get_dump(dump_format="json")). Leaves carry Leaf; splits carry
// the rest.
type Node struct {
	NodeID         int      `json:"nodeid"`
	Split          string   `json:"split,omitempty"`
	SplitCondition float64  `json:"split_condition,omitempty"`
	Yes            int      `json:"yes,omitempty"`
	No             int      `json:"no,omitempty"`
	Missing        int      `json:"missing,omitempty"`
	Leaf           *float64 `json:"leaf,omitempty"`
	Children       []Node   `json:"children,omitempty"`
}

// Model is a multi-class gradient-boosted tree ensemble. Tree i adds to the
// margin of class i % NumClass.
type Model struct {
	NumClass  int     `json:"num_class"`
	BaseScore float64 `json:"base_score"`
	Trees     []Node  `json:"trees"`
}

type node struct {
	feature   int
	threshold float64
	yes       int
	no        int
	missing   int
	leaf      float64
	isLeaf    bool
}

// tree is indexed by node id; the root is node 0
type tree []node

func (t tree) eval(x []float64) float64 {
	i := 0
	for !t[i].isLeaf {
		n := t[i]
		v := x[n.feature]
		switch {
		case math.IsNaN(v):
			i = n.missing
		case v < n.threshold:
			i = n.yes
		default:
			i = n.no
		}
	}
	return t[i].leaf
}

type forest struct {
	numClass  int
	baseScore float64
	trees     []tree
}

func compileModel(m Model, columns []string) (*forest, error) {
	if m.NumClass < 2 {
		return nil, fmt.Errorf("num_class = %d, need at least 2", m.NumClass)
	}
	if len(m.Trees) == 0 || len(m.Trees)%m.NumClass != 0 {
		return nil, fmt.Errorf("tree count %d is not a positive multiple of num_class %d", len(m.Trees), m.NumClass)
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	resolve := func(split string) (int, error) {
		if i, ok := index[split]; ok {
			return i, nil
		}
		// Models trained on bare arrays name features f0, f1, ...
		if n, err := strconv.Atoi(strings.TrimPrefix(split, "f")); err == nil && strings.HasPrefix(split, "f") {
			if n >= 0 && n < len(columns) {
				return n, nil
			}
		}
		return 0, fmt.Errorf("unknown split feature %q", split)
	}

	f := &forest{numClass: m.NumClass, baseScore: m.BaseScore, trees: make([]tree, len(m.Trees))}
	for i, root := range m.Trees {
		t, err := compileTree(root, resolve)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		f.trees[i] = t
	}
	return f, nil
}

func compileTree(root Node, resolve func(string) (int, error)) (tree, error) {
	if root.NodeID != 0 {
		return nil, fmt.Errorf("root has nodeid %d, want 0", root.NodeID)
	}

	var flat []Node
	var walk func(n Node)
	walk = func(n Node) {
		flat = append(flat, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)

	size := 0
	for _, n := range flat {
		if n.NodeID < 0 {
			return nil, fmt.Errorf("negative nodeid %d", n.NodeID)
		}
		if n.NodeID >= size {
			size = n.NodeID + 1
		}
	}

	t := make(tree, size)
	seen := make([]bool, size)
	for _, n := range flat {
		if seen[n.NodeID] {
			return nil, fmt.Errorf("duplicate nodeid %d", n.NodeID)
		}
		seen[n.NodeID] = true

		if n.Leaf != nil {
			t[n.NodeID] = node{isLeaf: true, leaf: *n.Leaf}
			continue
		}
		feature, err := resolve(n.Split)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n.NodeID, err)
		}
		missing := n.Missing
		if missing == 0 {
			missing = n.Yes
		}
		t[n.NodeID] = node{
			feature:   feature,
			threshold: n.SplitCondition,
			yes:       n.Yes,
			no:        n.No,
			missing:   missing,
		}
	}

	// Children always have larger ids than their parent, so evaluation
	// terminates.
	for id, n := range t {
		if !seen[id] {
			return nil, fmt.Errorf("nodeid %d referenced but not defined", id)
		}
		if n.isLeaf {
			continue
		}
		for _, child := range []int{n.yes, n.no, n.missing} {
			if child <= id || child >= size || !seen[child] {
				return nil, fmt.Errorf("node %d has invalid child %d", id, child)
			}
		}
	}
	return t, nil
}

// predict returns class probabilities in [0,1]
func (f *forest) predict(x []float64) []float64 {
	margins := make([]float64, f.numClass)
	for i := range margins {
		margins[i] = f.baseScore
	}
	for i, t := range f.trees {
		margins[i%f.numClass] += t.eval(x)
	}
	return softmax(margins)
}

func softmax(margins []float64) []float64 {
	hi := math.Inf(-1)
	for _, m := range margins {
		if m > hi {
			hi = m
		}
	}
	out := make([]float64, len(margins))
	var sum float64
	for i, m := range margins {
		out[i] = math.Exp(m - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the first index holding the maximum
func argmax(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}
