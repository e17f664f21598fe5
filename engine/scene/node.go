package scene

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lantern-engine/lantern/engine/core"
)

type NodeKind int

const (
	NODE_KIND_GROUP NodeKind = iota
	NODE_KIND_MESH
)

// Node is one entry of a scene hierarchy. Group nodes only compose
// transforms; mesh nodes additionally reference resident geometry and a
// material.
type Node struct {
	Name      string
	Kind      NodeKind
	Transform mgl32.Mat4
	Children  []int

	Geometry core.Handle
	Material core.Handle
}

// Graph is a forest of nodes addressed by index. Roots lists the entry
// points; an index may appear under at most one parent.
type Graph struct {
	Nodes []Node
	Roots []int
}

// Validate rejects graphs a traversal could not terminate on: child or
// root indices outside the node table, nodes claimed by two parents, and
// cycles. All failures wrap core.ErrMalformedSceneGraph.
func (g *Graph) Validate() error {
	parentOf := make(map[int]int, len(g.Nodes))
	for index := range g.Nodes {
		for _, child := range g.Nodes[index].Children {
			if child < 0 || child >= len(g.Nodes) {
				return errors.Wrapf(core.ErrMalformedSceneGraph, "node %d references child %d outside the node table", index, child)
			}
			if previous, claimed := parentOf[child]; claimed {
				return errors.Wrapf(core.ErrMalformedSceneGraph, "node %d is claimed by both node %d and node %d", child, previous, index)
			}
			parentOf[child] = index
		}
	}
	for _, root := range g.Roots {
		if root < 0 || root >= len(g.Nodes) {
			return errors.Wrapf(core.ErrMalformedSceneGraph, "root index %d outside the node table", root)
		}
	}

	// A child list can still close a loop through its ancestors; walk from
	// the roots with a colour marking.
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make([]int, len(g.Nodes))
	var walk func(index int) error
	walk = func(index int) error {
		switch state[index] {
		case inStack:
			return errors.Wrapf(core.ErrMalformedSceneGraph, "cycle through node %d", index)
		case done:
			return nil
		}
		state[index] = inStack
		for _, child := range g.Nodes[index].Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		state[index] = done
		return nil
	}
	for _, root := range g.Roots {
		if err := walk(root); err != nil {
			return err
		}
	}
	return nil
}

// Traverse visits every node reachable from the roots depth-first,
// handing each visit the node's composed world transform. The graph must
// have passed Validate.
func (g *Graph) Traverse(visit func(node *Node, world mgl32.Mat4)) {
	var walk func(index int, parent mgl32.Mat4)
	walk = func(index int, parent mgl32.Mat4) {
		node := &g.Nodes[index]
		world := parent.Mul4(node.Transform)
		visit(node, world)
		for _, child := range node.Children {
			walk(child, world)
		}
	}
	for _, root := range g.Roots {
		walk(root, mgl32.Ident4())
	}
}

// DrawRecord is one mesh instance flattened out of the graph, ready for
// submission.
type DrawRecord struct {
	// Pipeline is the fingerprint of the pipeline configuration the
	// record's material resolves to.
	Pipeline uint64
	Geometry core.Handle
	Material core.Handle
	World    mgl32.Mat4
}

// Collect flattens the graph into draw records. resolvePipeline maps a
// material to its pipeline fingerprint so records can be ordered for
// minimal state changes.
func Collect(g *Graph, resolvePipeline func(material core.Handle) uint64) []DrawRecord {
	records := make([]DrawRecord, 0, len(g.Nodes))
	g.Traverse(func(node *Node, world mgl32.Mat4) {
		if node.Kind != NODE_KIND_MESH {
			return
		}
		records = append(records, DrawRecord{
			Pipeline: resolvePipeline(node.Material),
			Geometry: node.Geometry,
			Material: node.Material,
			World:    world,
		})
	})
	return records
}

// SortDrawRecords orders records by pipeline, then material, so the
// render loop rebinds each at most once per run of records.
func SortDrawRecords(records []DrawRecord) {
	sort.SliceStable(records, func(a, b int) bool {
		if records[a].Pipeline != records[b].Pipeline {
			return records[a].Pipeline < records[b].Pipeline
		}
		if records[a].Material.Index != records[b].Material.Index {
			return records[a].Material.Index < records[b].Material.Index
		}
		return records[a].Material.Generation < records[b].Material.Generation
	})
}
