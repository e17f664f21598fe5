package scene

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identNodes(count int) []Node {
	nodes := make([]Node, count)
	for i := range nodes {
		nodes[i].Transform = mgl32.Ident4()
	}
	return nodes
}

func TestGraphValidateAcceptsTree(t *testing.T) {
	g := Graph{Nodes: identNodes(3), Roots: []int{0}}
	g.Nodes[0].Children = []int{1, 2}

	assert.NoError(t, g.Validate())
}

func TestGraphValidateRejectsCycle(t *testing.T) {
	g := Graph{Nodes: identNodes(3), Roots: []int{0}}
	g.Nodes[0].Children = []int{1}
	g.Nodes[1].Children = []int{2}
	g.Nodes[2].Children = []int{0}

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedSceneGraph))
}

func TestGraphValidateRejectsSelfReference(t *testing.T) {
	g := Graph{Nodes: identNodes(1), Roots: []int{0}}
	g.Nodes[0].Children = []int{0}

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedSceneGraph))
}

func TestGraphValidateRejectsDoubleParent(t *testing.T) {
	g := Graph{Nodes: identNodes(3), Roots: []int{0, 1}}
	g.Nodes[0].Children = []int{2}
	g.Nodes[1].Children = []int{2}

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedSceneGraph))
}

func TestGraphValidateRejectsOutOfRangeIndices(t *testing.T) {
	g := Graph{Nodes: identNodes(1), Roots: []int{0}}
	g.Nodes[0].Children = []int{5}
	assert.True(t, errors.Is(g.Validate(), core.ErrMalformedSceneGraph))

	g = Graph{Nodes: identNodes(1), Roots: []int{-1}}
	assert.True(t, errors.Is(g.Validate(), core.ErrMalformedSceneGraph))
}

func TestGraphTraverseComposesTransforms(t *testing.T) {
	g := Graph{Nodes: identNodes(2), Roots: []int{0}}
	g.Nodes[0].Transform = mgl32.Translate3D(1, 0, 0)
	g.Nodes[0].Children = []int{1}
	g.Nodes[1].Transform = mgl32.Translate3D(0, 2, 0)

	worlds := map[string]mgl32.Mat4{}
	g.Nodes[0].Name = "parent"
	g.Nodes[1].Name = "child"
	g.Traverse(func(node *Node, world mgl32.Mat4) {
		worlds[node.Name] = world
	})

	assert.Equal(t, mgl32.Translate3D(1, 0, 0), worlds["parent"])
	assert.Equal(t, mgl32.Translate3D(1, 2, 0), worlds["child"])
}

func TestCollectSkipsGroups(t *testing.T) {
	g := Graph{Nodes: identNodes(3), Roots: []int{0}}
	g.Nodes[0].Children = []int{1, 2}
	g.Nodes[1].Kind = NODE_KIND_MESH
	g.Nodes[1].Geometry = core.Handle{Index: 1, Generation: 1}
	g.Nodes[1].Material = core.Handle{Index: 1, Generation: 1}
	g.Nodes[2].Kind = NODE_KIND_MESH
	g.Nodes[2].Geometry = core.Handle{Index: 2, Generation: 1}
	g.Nodes[2].Material = core.Handle{Index: 2, Generation: 1}

	records := Collect(&g, func(material core.Handle) uint64 {
		return uint64(material.Index)
	})

	require.Len(t, records, 2)
	assert.Equal(t, uint32(1), records[0].Geometry.Index)
	assert.Equal(t, uint32(2), records[1].Geometry.Index)
	assert.Equal(t, uint64(1), records[0].Pipeline)
}

func TestCollectSharedMaterialYieldsOneHandle(t *testing.T) {
	shared := core.Handle{Index: 7, Generation: 1}

	g := Graph{Nodes: identNodes(3), Roots: []int{0}}
	g.Nodes[0].Children = []int{1, 2}
	g.Nodes[1].Kind = NODE_KIND_MESH
	g.Nodes[1].Geometry = core.Handle{Index: 1, Generation: 1}
	g.Nodes[1].Material = shared
	g.Nodes[2].Kind = NODE_KIND_MESH
	g.Nodes[2].Geometry = core.Handle{Index: 2, Generation: 1}
	g.Nodes[2].Material = shared

	records := Collect(&g, func(material core.Handle) uint64 {
		return uint64(material.Index)
	})

	// Two meshes sharing a material carry the same handle, so the draw
	// loop binds its descriptor set once after sorting.
	require.Len(t, records, 2)
	assert.Equal(t, shared, records[0].Material)
	assert.Equal(t, shared, records[1].Material)
	assert.Equal(t, records[0].Pipeline, records[1].Pipeline)
}

func TestSortDrawRecords(t *testing.T) {
	records := []DrawRecord{
		{Pipeline: 2, Material: core.Handle{Index: 0, Generation: 1}},
		{Pipeline: 1, Material: core.Handle{Index: 5, Generation: 1}},
		{Pipeline: 1, Material: core.Handle{Index: 2, Generation: 1}},
		{Pipeline: 2, Material: core.Handle{Index: 0, Generation: 1}},
		{Pipeline: 1, Material: core.Handle{Index: 2, Generation: 3}},
	}

	SortDrawRecords(records)

	assert.Equal(t, uint64(1), records[0].Pipeline)
	assert.Equal(t, uint32(2), records[0].Material.Index)
	assert.Equal(t, uint32(1), records[0].Material.Generation)
	assert.Equal(t, uint32(3), records[1].Material.Generation)
	assert.Equal(t, uint32(5), records[2].Material.Index)
	assert.Equal(t, uint64(2), records[3].Pipeline)
	assert.Equal(t, uint64(2), records[4].Pipeline)
}
