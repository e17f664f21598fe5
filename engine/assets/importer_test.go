package assets

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/lantern-engine/lantern/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploader hands out handles and tracks what is live so rollback can
// be asserted.
type fakeUploader struct {
	handles *core.HandleAllocator
	live    map[core.Handle]string

	failGeometryAt int
	failMaterialAt int
	geometryCalls  int
	materialCalls  int

	boundTextures map[core.Handle]MaterialTextureSet
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		handles:        core.NewHandleAllocator(),
		live:           map[core.Handle]string{},
		failGeometryAt: -1,
		failMaterialAt: -1,
		boundTextures:  map[core.Handle]MaterialTextureSet{},
	}
}

func (u *fakeUploader) UploadTexture(image *ImageAsset) (core.Handle, error) {
	h := u.handles.Acquire()
	u.live[h] = "texture"
	return h, nil
}

func (u *fakeUploader) UploadGeometry(mesh *MeshAsset) (core.Handle, error) {
	if u.geometryCalls == u.failGeometryAt {
		return core.InvalidHandle, errors.New("device out of memory")
	}
	u.geometryCalls++
	h := u.handles.Acquire()
	u.live[h] = "geometry"
	return h, nil
}

func (u *fakeUploader) BindMaterial(material *MaterialAsset, textures MaterialTextureSet) (core.Handle, error) {
	if u.materialCalls == u.failMaterialAt {
		return core.InvalidHandle, errors.New("descriptor pool exhausted")
	}
	u.materialCalls++
	h := u.handles.Acquire()
	u.live[h] = "material"
	u.boundTextures[h] = textures
	return h, nil
}

func (u *fakeUploader) ReleaseTexture(handle core.Handle)  { delete(u.live, handle) }
func (u *fakeUploader) ReleaseGeometry(handle core.Handle) { delete(u.live, handle) }
func (u *fakeUploader) ReleaseMaterial(handle core.Handle) { delete(u.live, handle) }

func flatScene() *SceneAsset {
	return &SceneAsset{
		Name: "test",
		Images: []ImageAsset{
			{Name: "albedo", Width: 1, Height: 1, Pixels: []byte{255, 255, 255, 255}},
		},
		Materials: []MaterialAsset{
			{
				Name:                     "painted",
				BaseColorFactor:          [4]float32{1, 1, 1, 1},
				AlphaMode:                ALPHA_MODE_OPAQUE,
				BaseColorTexture:         0,
				MetallicRoughnessTexture: -1,
				NormalTexture:            -1,
				OcclusionTexture:         -1,
				EmissiveTexture:          -1,
			},
		},
		Meshes: []MeshAsset{
			{Name: "quad", Material: 0, Vertices: make([]Vertex, 4), Indices: []uint32{0, 1, 2, 2, 3, 0}},
		},
		Nodes: []NodeAsset{
			{Name: "root", Transform: identTransform(), Children: []int{1}, Mesh: -1},
			{Name: "quad", Transform: identTransform(), Mesh: 0},
		},
		Roots: []int{0},
	}
}

func identTransform() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func TestImportBuildsResidentScene(t *testing.T) {
	uploader := newFakeUploader()
	imported, err := NewImporter(uploader).Import(flatScene())
	require.NoError(t, err)

	assert.NotEqual(t, imported.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Len(t, imported.Textures, 1)
	assert.Len(t, imported.Geometries, 1)
	assert.Len(t, imported.Materials, 1)

	// The mesh node carries the resident handles.
	meshNode := imported.Graph.Nodes[1]
	assert.Equal(t, scene.NODE_KIND_MESH, meshNode.Kind)
	assert.Equal(t, imported.Geometries[0], meshNode.Geometry)
	assert.Equal(t, imported.Materials[0], meshNode.Material)

	// The group node carries none.
	assert.Equal(t, scene.NODE_KIND_GROUP, imported.Graph.Nodes[0].Kind)
	assert.False(t, imported.Graph.Nodes[0].Geometry.Valid())
}

func TestImportMissingChannelsGetNoTexture(t *testing.T) {
	uploader := newFakeUploader()
	imported, err := NewImporter(uploader).Import(flatScene())
	require.NoError(t, err)

	textures := uploader.boundTextures[imported.Materials[0]]
	assert.Equal(t, imported.Textures[0], textures.BaseColor)
	assert.False(t, textures.MetallicRoughness.Valid())
	assert.False(t, textures.Normal.Valid())
	assert.False(t, textures.Occlusion.Valid())
	assert.False(t, textures.Emissive.Valid())
}

func TestImportRejectsCycle(t *testing.T) {
	asset := flatScene()
	asset.Nodes[1].Children = []int{0}

	uploader := newFakeUploader()
	_, err := NewImporter(uploader).Import(asset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedSceneGraph))
	assert.False(t, errors.Is(err, core.ErrAssetImportFailed))

	// Validation failed before anything touched the uploader.
	assert.Empty(t, uploader.live)
}

func TestImportRejectsDanglingMeshReference(t *testing.T) {
	asset := flatScene()
	asset.Nodes[1].Mesh = 7

	_, err := NewImporter(newFakeUploader()).Import(asset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedSceneGraph))
}

func TestImportRejectsDanglingTextureReference(t *testing.T) {
	asset := flatScene()
	asset.Materials[0].NormalTexture = 12

	_, err := NewImporter(newFakeUploader()).Import(asset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAssetImportFailed))
}

func TestImportRollsBackOnGeometryFailure(t *testing.T) {
	uploader := newFakeUploader()
	uploader.failGeometryAt = 0

	_, err := NewImporter(uploader).Import(flatScene())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAssetImportFailed))

	// The textures uploaded before the failure were released again.
	assert.Empty(t, uploader.live)
}

func TestImportRollsBackOnMaterialFailure(t *testing.T) {
	uploader := newFakeUploader()
	uploader.failMaterialAt = 0

	_, err := NewImporter(uploader).Import(flatScene())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAssetImportFailed))
	assert.Empty(t, uploader.live)
}

func TestImportedSceneReleaseIsIdempotent(t *testing.T) {
	uploader := newFakeUploader()
	imported, err := NewImporter(uploader).Import(flatScene())
	require.NoError(t, err)

	imported.Release(uploader)
	assert.Empty(t, uploader.live)
	imported.Release(uploader)
	assert.Empty(t, uploader.live)
}
