// Package unionfind implements a growable disjoint-set forest used to
// resolve label equivalences during connected-component labeling.
package unionfind

// DisjointSet is a union-find structure with path halving and union by
// size. Its backing arrays are addressed by index and grow on demand, so the
// hint passed to New is a starting capacity, not a bound.
type DisjointSet struct {
	parent []int
	size   []int
}

// New returns a set of hint singletons. A hint below 1 is raised to 1.
func New(hint int) *DisjointSet {
	if hint < 1 {
		hint = 1
	}
	ds := &DisjointSet{
		parent: make([]int, hint),
		size:   make([]int, hint),
	}
	for i := range ds.parent {
		ds.parent[i] = i
		ds.size[i] = 1
	}
	return ds
}

// Cap returns the current backing capacity.
func (ds *DisjointSet) Cap() int {
	return len(ds.parent)
}

// grow doubles the backing arrays until i is addressable. New slots are
// self-rooted with size 1.
func (ds *DisjointSet) grow(i int) {
	n := len(ds.parent)
	if i < n {
		return
	}
	newCap := n
	for newCap <= i {
		newCap *= 2
	}
	parent := make([]int, newCap)
	size := make([]int, newCap)
	copy(parent, ds.parent)
	copy(size, ds.size)
	for k := n; k < newCap; k++ {
		parent[k] = k
		size[k] = 1
	}
	ds.parent = parent
	ds.size = size
}

// Root returns the representative of i, halving the path on the way up.
func (ds *DisjointSet) Root(i int) int {
	ds.grow(i)
	for i != ds.parent[i] {
		ds.parent[i] = ds.parent[ds.parent[i]]
		i = ds.parent[i]
	}
	return i
}

// Connected reports whether p and q share a root.
func (ds *DisjointSet) Connected(p, q int) bool {
	return ds.Root(p) == ds.Root(q)
}

// Union merges the sets of p and q, hanging the smaller tree under the
// larger one. Ties keep p's root.
func (ds *DisjointSet) Union(p, q int) {
	i := ds.Root(p)
	j := ds.Root(q)
	if i == j {
		return
	}
	if ds.size[i] < ds.size[j] {
		ds.parent[i] = j
		ds.size[j] += ds.size[i]
	} else {
		ds.parent[j] = i
		ds.size[i] += ds.size[j]
	}
}

