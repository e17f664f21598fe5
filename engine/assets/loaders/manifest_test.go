package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lantern-engine/lantern/engine/assets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoManifest = `
name = "test"
roots = [0]

[[images]]
file = "crate.png"

[[materials]]
name = "crate"
base_color = [0.9, 0.6, 0.2, 1.0]
base_color_texture = 0

[[meshes]]
name = "crate"
primitive = "cube"
material = 0

[[nodes]]
name = "root"
children = [1]

[[nodes]]
name = "crate"
mesh = 0
translation = [0.0, 0.5, 0.0]
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()

	pngPath := writePNG(t, "crate.png", 2, 2)
	data, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.png"), data, 0o644))

	path := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBuildScene(t *testing.T) {
	scene, err := BuildScene(writeManifest(t, demoManifest))
	require.NoError(t, err)

	assert.Equal(t, "test", scene.Name)
	require.Len(t, scene.Images, 1)
	assert.Equal(t, uint32(2), scene.Images[0].Width)

	require.Len(t, scene.Materials, 1)
	assert.Equal(t, 0, scene.Materials[0].BaseColorTexture)
	// Channels the manifest omits carry no texture.
	assert.Equal(t, -1, scene.Materials[0].NormalTexture)
	assert.Equal(t, assets.ALPHA_MODE_OPAQUE, scene.Materials[0].AlphaMode)
	assert.Equal(t, float32(1), scene.Materials[0].MetallicFactor)

	require.Len(t, scene.Meshes, 1)
	assert.Len(t, scene.Meshes[0].Vertices, 24)
	assert.Len(t, scene.Meshes[0].Indices, 36)

	require.Len(t, scene.Nodes, 2)
	assert.Equal(t, -1, scene.Nodes[0].Mesh)
	assert.Equal(t, 0, scene.Nodes[1].Mesh)
	// Translation lands in the matrix's fourth column.
	assert.Equal(t, float32(0.5), scene.Nodes[1].Transform[13])
}

func TestBuildSceneRejectsUnknownPrimitive(t *testing.T) {
	manifest := `
name = "bad"

[[materials]]
name = "m"

[[meshes]]
name = "blob"
primitive = "torus"
material = 0
`
	_, err := BuildScene(writeManifest(t, manifest))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "torus")
}

func TestBuildSceneRejectsDanglingReferences(t *testing.T) {
	manifest := `
name = "bad"

[[materials]]
name = "m"
base_color_texture = 3

[[meshes]]
name = "quad"
primitive = "quad"
material = 0
`
	_, err := BuildScene(writeManifest(t, manifest))
	assert.Error(t, err)
}

func TestBuildSceneRoundtripsThroughContainer(t *testing.T) {
	scene, err := BuildScene(writeManifest(t, demoManifest))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "test.lant")
	require.NoError(t, assets.SaveSceneAsset(path, scene))

	loaded, err := assets.LoadSceneAsset(path)
	require.NoError(t, err)
	assert.Equal(t, scene.Meshes[0].Vertices, loaded.Meshes[0].Vertices)
	assert.Equal(t, scene.Images[0].Pixels, loaded.Images[0].Pixels)
}

func TestPrimitiveMeshQuad(t *testing.T) {
	vertices, indices, err := PrimitiveMesh(PRIMITIVE_QUAD)
	require.NoError(t, err)
	assert.Len(t, vertices, 4)
	assert.Len(t, indices, 6)

	for _, vertex := range vertices {
		assert.Equal(t, float32(1), vertex.Normal[2])
		assert.Equal(t, float32(1), vertex.Color[3])
	}
}

func TestPrimitiveMeshCubeIsClosed(t *testing.T) {
	vertices, indices, err := PrimitiveMesh(PRIMITIVE_CUBE)
	require.NoError(t, err)
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)

	// Every corner sits on the unit cube surface and every index is in
	// range.
	for _, vertex := range vertices {
		for axis := 0; axis < 3; axis++ {
			assert.LessOrEqual(t, vertex.Position[axis], float32(0.5))
			assert.GreaterOrEqual(t, vertex.Position[axis], float32(-0.5))
		}
	}
	for _, index := range indices {
		assert.Less(t, index, uint32(len(vertices)))
	}
}
