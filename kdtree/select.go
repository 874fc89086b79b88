package kdtree

import "github.com/soypat/dtrans/internal/d3"

// selectKth reorders pts so that pts[k] holds the element of rank k along
// dim, elements before it compare less than or equal and elements after it
// greater than or equal. Pivots are chosen by median of medians over groups
// of five and partitioning is three-way so runs of equal coordinates do not
// degrade the selection.
func selectKth(pts []Point, k, dim int) {
	for len(pts) > 1 {
		pivot := medianOfMedians(pts, dim)
		lt, gt := partition3(pts, pivot, dim)
		switch {
		case k < lt:
			pts = pts[:lt]
		case k >= gt:
			pts = pts[gt:]
			k -= gt
		default:
			return
		}
	}
}

// medianOfMedians returns a pivot value guaranteed to lie between the 30th
// and 70th percentile of pts along dim. pts is reordered.
func medianOfMedians(pts []Point, dim int) float64 {
	if len(pts) <= 5 {
		insertionSort(pts, dim)
		return d3.Comp(pts[(len(pts)-1)/2].Pos, dim)
	}
	n := 0
	for i := 0; i < len(pts); i += 5 {
		end := min(i+5, len(pts))
		insertionSort(pts[i:end], dim)
		m := i + (end-i-1)/2
		pts[n], pts[m] = pts[m], pts[n]
		n++
	}
	selectKth(pts[:n], n/2, dim)
	return d3.Comp(pts[n/2].Pos, dim)
}

// partition3 reorders pts into [0,lt) < pivot, [lt,gt) == pivot and [gt,n) > pivot.
func partition3(pts []Point, pivot float64, dim int) (lt, gt int) {
	i := 0
	gt = len(pts)
	for i < gt {
		c := d3.Comp(pts[i].Pos, dim)
		switch {
		case c < pivot:
			pts[lt], pts[i] = pts[i], pts[lt]
			lt++
			i++
		case c > pivot:
			gt--
			pts[i], pts[gt] = pts[gt], pts[i]
		default:
			i++
		}
	}
	return lt, gt
}

func insertionSort(pts []Point, dim int) {
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && d3.Comp(pts[j].Pos, dim) < d3.Comp(pts[j-1].Pos, dim); j-- {
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
}
