package vulkan

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The uniform block layout is shared with the fragment shader under
// std140 rules, so the Go struct offsets are load-bearing.
func TestMaterialInfoStd140Layout(t *testing.T) {
	var info MaterialInfo

	assert.Equal(t, uintptr(0), unsafe.Offsetof(info.BaseColor))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(info.Emissive))
	assert.Equal(t, uintptr(32), unsafe.Offsetof(info.MetallicRoughness))
	assert.Equal(t, uintptr(40), unsafe.Offsetof(info.NormalScale))
	assert.Equal(t, uintptr(44), unsafe.Offsetof(info.OcclusionStrength))
	assert.Equal(t, uintptr(48), unsafe.Offsetof(info.AlphaCutoff))
	assert.Equal(t, uintptr(52), unsafe.Offsetof(info.Flags))
	assert.Equal(t, uintptr(56), unsafe.Sizeof(info))
}

func TestMaterialInfoBytes(t *testing.T) {
	info := DefaultMaterialInfo()
	data := info.Bytes()
	assert.Len(t, data, int(unsafe.Sizeof(info)))
}

func TestMaterialFlagsAlphaMode(t *testing.T) {
	flags := MATERIAL_FLAG_ALPHA_MODE_MASK | MATERIAL_FLAG_DOUBLE_SIDED | MATERIAL_FLAG_HAS_NORMAL_TEXTURE
	assert.Equal(t, MATERIAL_FLAG_ALPHA_MODE_MASK, flags.AlphaMode())

	flags = MATERIAL_FLAG_ALPHA_MODE_BLEND
	assert.Equal(t, MATERIAL_FLAG_ALPHA_MODE_BLEND, flags.AlphaMode())

	assert.Equal(t, MaterialFlags(0), MaterialFlags(MATERIAL_FLAG_DOUBLE_SIDED).AlphaMode())
}

func TestDefaultMaterialInfo(t *testing.T) {
	info := DefaultMaterialInfo()
	assert.Equal(t, MATERIAL_FLAG_ALPHA_MODE_OPAQUE, info.Flags.AlphaMode())
	assert.Equal(t, float32(1), info.BaseColor[3])
	assert.Equal(t, float32(0.5), info.AlphaCutoff)
}

func TestMaterialInfoDiscards(t *testing.T) {
	masked := DefaultMaterialInfo()
	masked.Flags = MATERIAL_FLAG_ALPHA_MODE_MASK

	// 0.3 falls below the 0.5 cutoff; an opaque texel does not.
	assert.True(t, masked.Discards(0.3))
	assert.False(t, masked.Discards(0.5))
	assert.False(t, masked.Discards(1.0))

	// Only mask mode ever discards, whatever the alpha.
	opaque := DefaultMaterialInfo()
	assert.False(t, opaque.Discards(0.0))

	blended := DefaultMaterialInfo()
	blended.Flags = MATERIAL_FLAG_ALPHA_MODE_BLEND
	assert.False(t, blended.Discards(0.1))
}

func TestMaterialBinderBindIsIdempotent(t *testing.T) {
	residents := 0
	binder := &MaterialBinder{
		bound: make(map[core.Handle]*BoundMaterial),
		makeResident: func(info MaterialInfo, textures MaterialTextures) (*BoundMaterial, error) {
			residents++
			return &BoundMaterial{Info: info}, nil
		},
	}

	handles := core.NewHandleAllocator()
	handle := handles.Acquire()

	first, err := binder.Bind(handle, DefaultMaterialInfo(), MaterialTextures{})
	require.NoError(t, err)
	second, err := binder.Bind(handle, DefaultMaterialInfo(), MaterialTextures{})
	require.NoError(t, err)

	// Two meshes sharing the material share one resident state.
	assert.Same(t, first, second)
	assert.Equal(t, 1, residents)
	assert.True(t, binder.Bound(handle))

	cached, ok := binder.Lookup(handle)
	require.True(t, ok)
	assert.Same(t, first, cached)
}

func TestMaterialBinderBindFailureLeavesNothingBound(t *testing.T) {
	binder := &MaterialBinder{
		bound: make(map[core.Handle]*BoundMaterial),
		makeResident: func(info MaterialInfo, textures MaterialTextures) (*BoundMaterial, error) {
			return nil, errors.New("upload failed")
		},
	}

	handles := core.NewHandleAllocator()
	handle := handles.Acquire()

	_, err := binder.Bind(handle, DefaultMaterialInfo(), MaterialTextures{})
	require.Error(t, err)
	assert.False(t, binder.Bound(handle))
}

func TestDefaultTextureForChannel(t *testing.T) {
	assert.Equal(t, DEFAULT_TEXTURE_WHITE, DefaultTextureFor(MATERIAL_CHANNEL_BASE_COLOR))
	assert.Equal(t, DEFAULT_TEXTURE_WHITE, DefaultTextureFor(MATERIAL_CHANNEL_METALLIC_ROUGHNESS))
	assert.Equal(t, DEFAULT_TEXTURE_FLAT_NORMAL, DefaultTextureFor(MATERIAL_CHANNEL_NORMAL))
	assert.Equal(t, DEFAULT_TEXTURE_WHITE, DefaultTextureFor(MATERIAL_CHANNEL_OCCLUSION))
	assert.Equal(t, DEFAULT_TEXTURE_BLACK, DefaultTextureFor(MATERIAL_CHANNEL_EMISSIVE))
}

func TestDefaultTexturePixels(t *testing.T) {
	for kind := 0; kind < DEFAULT_TEXTURE_COUNT; kind++ {
		pixels := defaultTexturePixels(kind)
		assert.Len(t, pixels, 4, "kind %d is a single RGBA texel", kind)
	}

	normal := defaultTexturePixels(DEFAULT_TEXTURE_FLAT_NORMAL)
	assert.Equal(t, []byte{128, 128, 255, 255}, normal)

	black := defaultTexturePixels(DEFAULT_TEXTURE_BLACK)
	assert.Equal(t, []byte{0, 0, 0, 255}, black)
}
