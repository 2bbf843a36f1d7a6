// Package codegen prints a fitted decision tree as a nested-conditional
// source function that returns the original label strings.
package codegen

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

const indentUnit = "    "

// Tree is the read-only view of a fitted tree the printer needs.
// Node 0 is the root.
type Tree interface {
	NodeCount() int
	IsLeaf(node int) bool
	Split(node int) (feature int, threshold float64)
	Children(node int) (left, right int)
	MajorityClass(node int) int
}

// LabelNamer maps a class code back to its label.
type LabelNamer interface {
	Name(code int) (string, bool)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Generator turns trees into source lines. It holds no per-tree state and
// may be reused.
type Generator struct {
	dialect  Dialect
	function string
}

// NewGenerator returns a Generator for the named dialect ("cpp" or "go")
// emitting a function called function.
func NewGenerator(dialect, function string) (*Generator, error) {
	d, ok := LookupDialect(dialect)
	if !ok {
		return nil, errors.NewValidationError("dialect", "must be one of "+strings.Join(DialectNames(), ", "), dialect)
	}
	if !identifier.MatchString(function) {
		return nil, errors.NewValidationError("function", "must be an identifier", function)
	}
	return &Generator{dialect: d, function: function}, nil
}

// FeatureNames returns the positional names features[0] .. features[p-1]
// of the generator's dialect.
func (g *Generator) FeatureNames(p int) []string {
	names := make([]string, p)
	for i := range names {
		names[i] = g.dialect.Feature(i)
	}
	return names
}

// Lines returns the function as text lines without trailing newlines.
//
// 内部ノードは "feature <= threshold" の分岐、葉は多数派クラスのラベルを返す。
// 閾値は小数点以下6桁固定（ロケール非依存）。
func (g *Generator) Lines(tree Tree, featureNames []string, labels LabelNamer) (lines []string, err error) {
	defer errors.Recover(&err, "codegen.Lines")

	if tree == nil || tree.NodeCount() == 0 {
		return nil, errors.NewValueError("codegen", "empty tree")
	}

	p := &printer{
		dialect:      g.dialect,
		tree:         tree,
		featureNames: featureNames,
		labels:       labels,
		nodeCount:    tree.NodeCount(),
	}
	p.emit(0, g.dialect.Signature(g.function))
	if err := p.walk(0, 1); err != nil {
		return nil, err
	}
	p.emit(0, g.dialect.Close())
	return p.lines, nil
}

// Render writes the lines produced by Lines to w, one per line.
func (g *Generator) Render(w io.Writer, tree Tree, featureNames []string, labels LabelNamer) error {
	lines, err := g.Lines(tree, featureNames, labels)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return errors.Wrap(err, "write generated code")
		}
	}
	return nil
}

type printer struct {
	dialect      Dialect
	tree         Tree
	featureNames []string
	labels       LabelNamer
	nodeCount    int
	lines        []string
}

func (p *printer) emit(depth int, s string) {
	p.lines = append(p.lines, strings.Repeat(indentUnit, depth)+s)
}

// walk は前順で node を出力する。depth は関数本体の 1 から始まる。
func (p *printer) walk(node, depth int) error {
	if node < 0 || node >= p.nodeCount {
		return errors.NewValueError("codegen", fmt.Sprintf("node %d out of range [0, %d)", node, p.nodeCount))
	}
	// 木であれば深さはノード数を超えない
	if depth > p.nodeCount {
		return errors.NewValueError("codegen", fmt.Sprintf("cycle detected at node %d", node))
	}

	if p.tree.IsLeaf(node) {
		code := p.tree.MajorityClass(node)
		label, ok := p.labels.Name(code)
		if !ok {
			return errors.NewValueError("codegen", fmt.Sprintf("node %d: no label for class %d", node, code))
		}
		p.emit(depth, p.dialect.Return(label))
		return nil
	}

	feature, threshold := p.tree.Split(node)
	if feature < 0 || feature >= len(p.featureNames) {
		return errors.NewValueError("codegen", fmt.Sprintf("node %d: feature %d out of range [0, %d)", node, feature, len(p.featureNames)))
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return errors.NewValueError("codegen", fmt.Sprintf("node %d: non-finite threshold", node))
	}
	left, right := p.tree.Children(node)

	p.emit(depth, p.dialect.If(p.featureNames[feature], formatThreshold(threshold)))
	if err := p.walk(left, depth+1); err != nil {
		return err
	}
	p.emit(depth, p.dialect.Else())
	if err := p.walk(right, depth+1); err != nil {
		return err
	}
	p.emit(depth, p.dialect.Close())
	return nil
}

func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', 6, 64)
}
