package tree

import (
	"cmp"
	"math"
	"slices"

	"github.com/YuminosukeSato/dtreegen/core/parallel"
)

const (
	// featureThreshold 未満の差しかない隣接値の間には分割点を置かない
	featureThreshold = 1e-7
	epsilon          = 1e-12
)

// split は1ノードに対する最良分割の候補
type split struct {
	feature     int
	threshold   float64
	pos         int     // ソート済みサンプルのうち左に入る個数
	improvement float64 // parent - (nL/n)·left - (nR/n)·right
	found       bool
}

// builder は深さ優先で木を成長させる。ノード id は前順に振られる。
type builder struct {
	cols     [][]float64 // cols[f][i]: 列優先の特徴量
	y        []int       // サンプルごとのクラスインデックス
	nClasses int
	impurity impurityFunc

	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	minImpurityDecrease float64
	parallelThreshold   int

	nTotal int
	tree   *Tree
}

func (b *builder) classCounts(samples []int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	return counts
}

// grow はノードを追加し、必要なら再帰的に左右の部分木を作る
func (b *builder) grow(samples []int, depth int) int {
	n := len(samples)
	counts := b.classCounts(samples)
	imp := b.impurity(counts, float64(n))

	id := b.tree.addNode(counts, imp, n)
	if depth > b.tree.MaxDepth {
		b.tree.MaxDepth = depth
	}

	if (b.maxDepth > 0 && depth >= b.maxDepth) ||
		n < b.minSamplesSplit ||
		n < 2*b.minSamplesLeaf ||
		imp <= epsilon {
		return id
	}

	best := b.bestSplit(samples, counts, imp)
	if !best.found {
		return id
	}
	weighted := float64(n) / float64(b.nTotal) * best.improvement
	if weighted+epsilon < b.minImpurityDecrease {
		return id
	}

	left, right := partition(samples, b.cols[best.feature], best.threshold)
	b.tree.Feature[id] = best.feature
	b.tree.Threshold[id] = best.threshold

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.ChildrenLeft[id] = l
	b.tree.ChildrenRight[id] = r
	return id
}

// bestSplit は全特徴量を走査して最大の不純度減少を持つ分割を返す。
// 同点の場合は特徴量インデックスが小さい方、次に閾値が小さい方を採る。
func (b *builder) bestSplit(samples []int, counts []float64, parentImp float64) split {
	nFeatures := len(b.cols)
	perFeature := make([]split, nFeatures)

	parallel.ParallelizeWithThreshold(nFeatures, b.parallelThreshold, func(start, end int) {
		sorted := make([]int, len(samples))
		left := make([]float64, b.nClasses)
		right := make([]float64, b.nClasses)
		for f := start; f < end; f++ {
			perFeature[f] = b.searchFeature(f, samples, counts, parentImp, sorted, left, right)
		}
	})

	var best split
	for _, s := range perFeature {
		if !s.found {
			continue
		}
		if !best.found || s.improvement > best.improvement {
			best = s
		}
	}
	return best
}

// searchFeature は特徴量 f の全ての中点閾値を評価する。
// sorted, left, right は呼び出し側が用意する作業領域。
func (b *builder) searchFeature(f int, samples []int, counts []float64, parentImp float64, sorted []int, left, right []float64) split {
	col := b.cols[f]
	copy(sorted, samples)
	slices.SortStableFunc(sorted, func(a, c int) int {
		return cmp.Compare(col[a], col[c])
	})

	n := len(sorted)
	if col[sorted[n-1]] <= col[sorted[0]]+featureThreshold {
		// 定数特徴量
		return split{}
	}

	for k := range left {
		left[k] = 0
		right[k] = counts[k]
	}

	best := split{feature: f}
	for pos := 1; pos < n; pos++ {
		c := b.y[sorted[pos-1]]
		left[c]++
		right[c]--

		prev, next := col[sorted[pos-1]], col[sorted[pos]]
		if next <= prev+featureThreshold {
			continue
		}
		nL, nR := pos, n-pos
		if nL < b.minSamplesLeaf || nR < b.minSamplesLeaf {
			continue
		}

		improvement := parentImp -
			float64(nL)/float64(n)*b.impurity(left, float64(nL)) -
			float64(nR)/float64(n)*b.impurity(right, float64(nR))
		if best.found && improvement <= best.improvement {
			continue
		}

		threshold := prev/2 + next/2
		if threshold == next || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
			threshold = prev
		}
		best.threshold = threshold
		best.pos = pos
		best.improvement = improvement
		best.found = true
	}
	return best
}

// partition は閾値以下を左、それ以外を右に分ける。元の順序を保つ。
func partition(samples []int, col []float64, threshold float64) (left, right []int) {
	left = make([]int, 0, len(samples))
	right = make([]int, 0, len(samples))
	for _, s := range samples {
		if col[s] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	return left, right
}
