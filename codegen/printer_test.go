package codegen

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/dtreegen/dataset"
	"github.com/YuminosukeSato/dtreegen/pkg/errors"
	"github.com/YuminosukeSato/dtreegen/sklearn/tree"
)

// fakeTree は任意の（壊れた）構造を表現できる Tree 実装
type fakeTree struct {
	left, right []int
	feature     []int
	threshold   []float64
	class       []int
}

func (f *fakeTree) NodeCount() int                { return len(f.left) }
func (f *fakeTree) IsLeaf(node int) bool          { return f.left[node] == tree.TreeLeaf }
func (f *fakeTree) Split(node int) (int, float64) { return f.feature[node], f.threshold[node] }
func (f *fakeTree) Children(node int) (int, int)  { return f.left[node], f.right[node] }
func (f *fakeTree) MajorityClass(node int) int    { return f.class[node] }

type names []string

func (n names) Name(code int) (string, bool) {
	if code < 0 || code >= len(n) {
		return "", false
	}
	return n[code], true
}

func fitAB(t *testing.T) (*tree.Tree, *dataset.Dataset) {
	t.Helper()
	ds, err := dataset.Build([]dataset.Record{
		{Features: []float64{0.1, 5}, Label: "A"},
		{Features: []float64{0.9, 5}, Label: "A"},
		{Features: []float64{0.2, 1}, Label: "B"},
		{Features: []float64{0.8, 1}, Label: "B"},
	})
	require.NoError(t, err)

	clf := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(3))
	require.NoError(t, clf.Fit(ds.X, ds.Y))
	tr, err := clf.Tree()
	require.NoError(t, err)
	return tr, ds
}

func TestGenerator_CppGolden(t *testing.T) {
	tr, ds := fitAB(t)
	g, err := NewGenerator("cpp", "classify")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.Render(&buf, tr, g.FeatureNames(2), ds.Labels))

	want := `std::string classify(float features[]) {
    if (features[1] <= 3.000000) {
        return "B";
    } else {
        return "A";
    }
}
`
	assert.Equal(t, want, buf.String())
}

func TestGenerator_GoDialect(t *testing.T) {
	tr, ds := fitAB(t)
	g, err := NewGenerator("go", "Label")
	require.NoError(t, err)

	lines, err := g.Lines(tr, g.FeatureNames(2), ds.Labels)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"func Label(features []float64) string {",
		"    if features[1] <= 3.000000 {",
		`        return "B"`,
		"    } else {",
		`        return "A"`,
		"    }",
		"}",
	}, lines)
}

func TestGenerator_SingleLeaf(t *testing.T) {
	g, err := NewGenerator("cpp", "classify")
	require.NoError(t, err)

	single := &fakeTree{
		left: []int{tree.TreeLeaf}, right: []int{tree.TreeLeaf},
		feature: []int{tree.TreeUndefined}, threshold: []float64{tree.TreeUndefined},
		class: []int{0},
	}
	lines, err := g.Lines(single, g.FeatureNames(3), names{"only"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"std::string classify(float features[]) {",
		`    return "only";`,
		"}",
	}, lines)
}

func TestGenerator_Idempotent(t *testing.T) {
	tr, ds := fitAB(t)
	g, err := NewGenerator("cpp", "classify")
	require.NoError(t, err)

	first, err := g.Lines(tr, g.FeatureNames(2), ds.Labels)
	require.NoError(t, err)
	second, err := g.Lines(tr, g.FeatureNames(2), ds.Labels)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var a, b bytes.Buffer
	require.NoError(t, g.Render(&a, tr, g.FeatureNames(2), ds.Labels))
	require.NoError(t, g.Render(&b, tr, g.FeatureNames(2), ds.Labels))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestFormatThreshold(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3.000000"},
		{-2.5, "-2.500000"},
		{0.4035384, "0.403538"},
		{1e-7, "0.000000"},
		{1234567.1234567, "1234567.123457"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatThreshold(tt.in))
	}
}

func TestGenerator_QuotesLabels(t *testing.T) {
	g, err := NewGenerator("cpp", "classify")
	require.NoError(t, err)

	single := &fakeTree{
		left: []int{tree.TreeLeaf}, right: []int{tree.TreeLeaf},
		feature: []int{tree.TreeUndefined}, threshold: []float64{0},
		class: []int{0},
	}
	lines, err := g.Lines(single, nil, names{`tea "bag"`})
	require.NoError(t, err)
	assert.Equal(t, `    return "tea \"bag\"";`, lines[1])
}

// multiClassData は整数格子上の3クラスデータ（閾値の丸めの影響を受けない）
func multiClassData() []dataset.Record {
	var records []dataset.Record
	for i := 0; i < 60; i++ {
		x0 := float64(i % 10)
		x1 := float64((i * 7) % 13)
		x2 := float64(i % 4)
		label := "low"
		switch {
		case x0+x1 > 15:
			label = "high"
		case x0 > 5 || x2 == 3:
			label = "mid"
		}
		records = append(records, dataset.Record{Features: []float64{x0, x1, x2}, Label: label})
	}
	return records
}

func TestGenerator_RoundTrip(t *testing.T) {
	ds, err := dataset.Build(multiClassData())
	require.NoError(t, err)

	clf := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(3))
	require.NoError(t, clf.Fit(ds.X, ds.Y))
	tr, err := clf.Tree()
	require.NoError(t, err)

	g, err := NewGenerator("cpp", "classify")
	require.NoError(t, err)
	lines, err := g.Lines(tr, g.FeatureNames(3), ds.Labels)
	require.NoError(t, err)

	program := parseProgram(t, lines)
	leaves, err := clf.Apply(ds.X)
	require.NoError(t, err)

	// 葉ごとの訓練ラベルの多数派（同数なら小さいコード）
	counts := map[int][]int{}
	n, _ := ds.Dims()
	for i := 0; i < n; i++ {
		if counts[leaves[i]] == nil {
			counts[leaves[i]] = make([]int, ds.Labels.Len())
		}
		counts[leaves[i]][int(ds.Y.At(i, 0))]++
	}

	for i := 0; i < n; i++ {
		x := mat.Row(nil, i, ds.X)
		c := counts[leaves[i]]
		best := 0
		for k := range c {
			if c[k] > c[best] {
				best = k
			}
		}
		want, _ := ds.Labels.Name(best)
		assert.Equal(t, want, program.eval(x), "sample %d", i)
	}
}

func TestGenerator_DepthBound(t *testing.T) {
	ds, err := dataset.Build(multiClassData())
	require.NoError(t, err)

	clf := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(3))
	require.NoError(t, clf.Fit(ds.X, ds.Y))
	tr, _ := clf.Tree()

	g, _ := NewGenerator("cpp", "classify")
	lines, err := g.Lines(tr, g.FeatureNames(3), ds.Labels)
	require.NoError(t, err)

	ifs := 0
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		indent := (len(line) - len(trimmed)) / len(indentUnit)
		if strings.HasPrefix(trimmed, "if ") {
			ifs++
			assert.LessOrEqual(t, indent, 3, line)
		}
		if strings.HasPrefix(trimmed, "return ") {
			assert.LessOrEqual(t, indent, 4, line)
		}
	}
	assert.LessOrEqual(t, ifs, 7)
}

func TestGenerator_MalformedTrees(t *testing.T) {
	g, err := NewGenerator("cpp", "classify")
	require.NoError(t, err)
	leaf := tree.TreeLeaf

	tests := []struct {
		name    string
		tree    *fakeTree
		labels  names
		wantMsg string
	}{
		{
			name: "child out of range",
			tree: &fakeTree{
				left: []int{5}, right: []int{1},
				feature: []int{0}, threshold: []float64{1}, class: []int{0},
			},
			labels:  names{"a"},
			wantMsg: "node 5 out of range",
		},
		{
			name: "cycle",
			tree: &fakeTree{
				left: []int{1, 0, leaf}, right: []int{2, 2, leaf},
				feature: []int{0, 0, -2}, threshold: []float64{1, 1, -2}, class: []int{0, 0, 0},
			},
			labels:  names{"a"},
			wantMsg: "cycle detected",
		},
		{
			name: "unknown feature",
			tree: &fakeTree{
				left: []int{1, leaf, leaf}, right: []int{2, leaf, leaf},
				feature: []int{9, -2, -2}, threshold: []float64{1, -2, -2}, class: []int{0, 0, 0},
			},
			labels:  names{"a"},
			wantMsg: "feature 9 out of range",
		},
		{
			name: "unknown class",
			tree: &fakeTree{
				left: []int{leaf}, right: []int{leaf},
				feature: []int{-2}, threshold: []float64{-2}, class: []int{4},
			},
			labels:  names{"a"},
			wantMsg: "no label for class 4",
		},
		{
			name: "non-finite threshold",
			tree: &fakeTree{
				left: []int{1, leaf, leaf}, right: []int{2, leaf, leaf},
				feature: []int{0, -2, -2}, threshold: []float64{math.NaN(), -2, -2}, class: []int{0, 0, 0},
			},
			labels:  names{"a"},
			wantMsg: "non-finite threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Lines(tt.tree, g.FeatureNames(2), tt.labels)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	t.Run("inconsistent arrays panic is recovered", func(t *testing.T) {
		broken := &fakeTree{
			left: []int{1, leaf, leaf}, right: []int{2, leaf, leaf},
			feature: []int{0}, threshold: []float64{1}, class: []int{0},
		}
		_, err := g.Lines(broken, g.FeatureNames(2), names{"a"})
		var panicErr *errors.PanicError
		require.True(t, errors.As(err, &panicErr))
		assert.Equal(t, "codegen.Lines", panicErr.Operation)
	})

	t.Run("empty tree", func(t *testing.T) {
		_, err := g.Lines(&fakeTree{}, nil, names{})
		assert.Error(t, err)
	})
}

func TestNewGenerator_Validation(t *testing.T) {
	_, err := NewGenerator("rust", "classify")
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	_, err = NewGenerator("cpp", "9lives")
	assert.True(t, errors.As(err, &valErr))

	assert.Equal(t, []string{"cpp", "go"}, DialectNames())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, fmt.Errorf("disk full") }

func TestGenerator_RenderWriteError(t *testing.T) {
	tr, ds := fitAB(t)
	g, _ := NewGenerator("cpp", "classify")
	err := g.Render(failingWriter{}, tr, g.FeatureNames(2), ds.Labels)
	assert.ErrorContains(t, err, "disk full")
}

// --- 生成コードの評価器 -----------------------------------------------------

type program struct {
	leaf      bool
	label     string
	feature   int
	threshold float64
	left      *program
	right     *program
}

func (p *program) eval(x []float64) string {
	for !p.leaf {
		if x[p.feature] <= p.threshold {
			p = p.left
		} else {
			p = p.right
		}
	}
	return p.label
}

// parseProgram は cpp 方言で生成された行を木に戻す
func parseProgram(t *testing.T, lines []string) *program {
	t.Helper()
	require.GreaterOrEqual(t, len(lines), 3)
	require.Equal(t, "}", lines[len(lines)-1])

	body := lines[1 : len(lines)-1]
	pos := 0
	next := func() string {
		require.Less(t, pos, len(body))
		line := strings.TrimSpace(body[pos])
		pos++
		return line
	}

	var parse func() *program
	parse = func() *program {
		line := next()
		if strings.HasPrefix(line, "return ") {
			label, err := strconv.Unquote(strings.TrimSuffix(strings.TrimPrefix(line, "return "), ";"))
			require.NoError(t, err)
			return &program{leaf: true, label: label}
		}
		node := &program{}
		_, err := fmt.Sscanf(line, "if (features[%d] <= %g) {", &node.feature, &node.threshold)
		require.NoError(t, err, line)
		node.left = parse()
		require.Equal(t, "} else {", next())
		node.right = parse()
		require.Equal(t, "}", next())
		return node
	}

	root := parse()
	require.Equal(t, len(body), pos)
	return root
}
