package selection

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"voxelselect/internal/models"
)

// faceNeighbours are the 6-connected offsets
var faceNeighbours = [6]models.Voxel{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// lattice is an implicit undirected graph over the voxels of a box: node IDs
// are linear indices and hit voxels sharing a face are joined by an edge.
type lattice struct {
	size models.Shape
	hits []bool
}

// From returns the hit voxels that share a face with id
func (l lattice) From(id int64) graph.Nodes {
	v := l.size.Voxel(int(id))
	nodes := make([]graph.Node, 0, len(faceNeighbours))
	for _, d := range faceNeighbours {
		n := v.Add(d)
		if !l.size.Contains(n) {
			continue
		}
		if idx := l.size.Index(n); l.hits[idx] {
			nodes = append(nodes, simple.Node(idx))
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

// Edge returns the edge between uid and vid, or nil when they are not
// neighbouring hits
func (l lattice) Edge(uid, vid int64) graph.Edge {
	u, v := int(uid), int(vid)
	if !l.hits[u] || !l.hits[v] {
		return nil
	}
	a, b := l.size.Voxel(u), l.size.Voxel(v)
	dist := 0
	for i := 0; i < 3; i++ {
		dist += abs(a[i] - b[i])
	}
	if dist != 1 {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}

// component returns the 6-connected component of hits containing seed.
// The result is all false when seed is not itself a hit.
func component(size models.Shape, hits []bool, seed int) []bool {
	keep := make([]bool, len(hits))
	if !hits[seed] {
		return keep
	}

	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) { keep[n.ID()] = true },
	}
	bf.Walk(lattice{size: size, hits: hits}, simple.Node(seed), nil)
	return keep
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
