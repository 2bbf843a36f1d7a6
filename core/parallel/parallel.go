// Package parallel provides a small range-splitting worker helper.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize は items 個の要素を GOMAXPROCS 個以下の連続区間に分割し、
// 各区間 [start, end) に対して fn を並列に実行する。全ての fn が戻るまでブロックする。
//
// fn は区間ごとに独立した作業領域を使うこと。結果は要素インデックスで
// 書き分ければ実行順序に依存しない。
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > items {
		numWorkers = items
	}
	if numWorkers <= 1 {
		fn(0, items)
		return
	}

	// 切り上げ除算
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold は items が threshold を超える場合のみ並列化する。
// threshold 以下では呼び出し元のゴルーチンで fn(0, items) を実行する。
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
