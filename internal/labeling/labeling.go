// Package labeling assigns connected-component labels to binary images
// using a run-length first pass and a disjoint-set equivalence table.
package labeling

import (
	"egt-segmenter/internal/unionfind"
)

// Label4 rewrites px in place so that every nonzero cell holds the
// canonical id of its 4-connected component, numbered from 1. It returns
// the component count.
func Label4(px []int32, width, height int) int {
	next := runs(px, width, height)
	ds := unionfind.New(height)
	for y := 1; y < height; y++ {
		row := y * width
		for k := row; k < row+width; k++ {
			if px[k] > 0 && px[k-width] > 0 {
				ds.Union(int(px[k-width]), int(px[k]))
			}
		}
	}
	return canonicalize(px, ds, next)
}

// Label8 labels px with 8-connectivity. The upper-left diagonal is merged
// first (together with the upper-right one when it is set), otherwise the
// cell above, otherwise the upper-right diagonal.
func Label8(px []int32, width, height int) int {
	next := runs(px, width, height)
	ds := unionfind.New(height)
	for y := 1; y < height; y++ {
		row := y * width
		up := row - width
		for x := 0; x < width; x++ {
			k := row + x
			if px[k] == 0 {
				continue
			}
			cur := int(px[k])
			upperLeft := x > 0 && px[up+x-1] > 0
			upperRight := x < width-1 && px[up+x+1] > 0

			switch {
			case upperLeft:
				ds.Union(int(px[up+x-1]), cur)
				if upperRight {
					ds.Union(int(px[up+x+1]), cur)
				}
			case px[up+x] > 0:
				ds.Union(int(px[up+x]), cur)
			case upperRight:
				ds.Union(int(px[up+x+1]), cur)
			}
		}
	}
	return canonicalize(px, ds, next)
}

// runs gives every maximal horizontal run of foreground its own
// provisional label and returns the next unused label.
func runs(px []int32, width, height int) int32 {
	label := int32(1)
	for y := 0; y < height; y++ {
		k := y * width
		for j := k; j < k+width; j++ {
			switch {
			case px[j] <= 0:
				px[j] = 0
			case j > k && px[j-1] > 0:
				px[j] = px[j-1]
			default:
				px[j] = label
				label++
			}
		}
	}
	return label
}

// canonicalize maps every root to a contiguous id. Index 0 of the set is
// never used by a provisional label, so it stays its own root and maps to 0.
func canonicalize(px []int32, ds *unionfind.DisjointSet, next int32) int {
	ids := make([]int32, next)
	id := int32(1)
	for i := 1; i < int(next); i++ {
		r := ds.Root(i)
		if ids[r] == 0 {
			ids[r] = id
			id++
		}
	}
	for k, v := range px {
		if v > 0 {
			px[k] = ids[ds.Root(int(v))]
		}
	}
	return int(id - 1)
}

// Sizes counts the pixels of each label. The result has n+1 entries and
// index 0 is left at zero.
func Sizes(px []int32, n int) []int {
	sizes := make([]int, n+1)
	for _, v := range px {
		if v > 0 {
			sizes[v]++
		}
	}
	return sizes
}

// FromMask copies a binary mask into a label buffer, inverting it when
// invert is set.
func FromMask(mask []uint8, invert bool) []int32 {
	px := make([]int32, len(mask))
	for i, v := range mask {
		if (v != 0) != invert {
			px[i] = 1
		}
	}
	return px
}
