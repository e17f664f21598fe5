package assets

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containerScene() *SceneAsset {
	asset := flatScene()
	asset.Meshes[0].Vertices = []Vertex{
		{Position: mgl32.Vec3{0, 0, 0}, Color: mgl32.Vec4{1, 1, 1, 1}},
		{Position: mgl32.Vec3{1, 0, 0}, Color: mgl32.Vec4{1, 1, 1, 1}},
		{Position: mgl32.Vec3{1, 1, 0}, Color: mgl32.Vec4{1, 1, 1, 1}},
		{Position: mgl32.Vec3{0, 1, 0}, Color: mgl32.Vec4{1, 1, 1, 1}},
	}
	return asset
}

func TestSceneContainerRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lant")
	original := containerScene()

	require.NoError(t, SaveSceneAsset(path, original))

	loaded, err := LoadSceneAsset(path)
	require.NoError(t, err)

	assert.Equal(t, original.Name, loaded.Name)
	assert.Equal(t, original.Materials, loaded.Materials)
	assert.Equal(t, original.Nodes, loaded.Nodes)
	assert.Equal(t, original.Roots, loaded.Roots)

	require.Len(t, loaded.Images, 1)
	assert.Equal(t, original.Images[0].Pixels, loaded.Images[0].Pixels)

	require.Len(t, loaded.Meshes, 1)
	assert.Equal(t, original.Meshes[0].Vertices, loaded.Meshes[0].Vertices)
	assert.Equal(t, original.Meshes[0].Indices, loaded.Meshes[0].Indices)
}

func TestReadSceneAssetRejectsBadMagic(t *testing.T) {
	_, err := ReadSceneAsset(bytes.NewReader([]byte("NOPE and then some trailing data")))
	assert.Error(t, err)
}

func TestReadSceneAssetRejectsBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lant")
	require.NoError(t, SaveSceneAsset(path, containerScene()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[4] = 99

	_, err = ReadSceneAsset(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestReadSceneAssetRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lant")
	require.NoError(t, SaveSceneAsset(path, containerScene()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = ReadSceneAsset(bytes.NewReader(data[:len(data)/2]))
	assert.Error(t, err)
}

func craftContainer(t *testing.T, header containerHeader, blob []byte) []byte {
	t.Helper()
	headerJSON, err := json.Marshal(&header)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(containerMagic[:])
	fixed := make([]byte, 16)
	binary.LittleEndian.PutUint32(fixed[0:], containerVersion)
	binary.LittleEndian.PutUint32(fixed[4:], uint32(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[8:], uint64(len(blob)))
	buf.Write(fixed)
	buf.Write(headerJSON)
	compressor := lz4.NewWriter(&buf)
	_, err = compressor.Write(blob)
	require.NoError(t, err)
	require.NoError(t, compressor.Close())
	return buf.Bytes()
}

func TestReadSceneAssetRejectsOverflowingSpan(t *testing.T) {
	header := containerHeader{
		Scene:  SceneAsset{Name: "hostile", Images: make([]ImageAsset, 1)},
		Images: []blobSpan{{Offset: math.MaxUint64 - 1, Length: 2}},
	}

	_, err := ReadSceneAsset(bytes.NewReader(craftContainer(t, header, []byte{1, 2, 3, 4})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob span")
}

func TestReadSceneAssetRejectsSpanPastBlobEnd(t *testing.T) {
	header := containerHeader{
		Scene:  SceneAsset{Name: "hostile", Images: make([]ImageAsset, 1)},
		Images: []blobSpan{{Offset: 2, Length: 8}},
	}

	_, err := ReadSceneAsset(bytes.NewReader(craftContainer(t, header, []byte{1, 2, 3, 4})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob span")
}

func TestReadSceneAssetRejectsOversizedBlobLength(t *testing.T) {
	data := craftContainer(t, containerHeader{Scene: SceneAsset{Name: "hostile"}}, nil)
	binary.LittleEndian.PutUint64(data[12:], math.MaxUint64)

	_, err := ReadSceneAsset(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte limit")
}

func TestSceneContainerRoundtripThroughImporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lant")
	require.NoError(t, SaveSceneAsset(path, containerScene()))

	loaded, err := LoadSceneAsset(path)
	require.NoError(t, err)

	uploader := newFakeUploader()
	imported, err := NewImporter(uploader).Import(loaded)
	require.NoError(t, err)
	assert.Len(t, imported.Graph.Nodes, 2)
}
