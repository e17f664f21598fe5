package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineDescFingerprintStable(t *testing.T) {
	desc := PipelineDesc{
		ShaderName: "scene",
		CullMode:   FaceCullModeBack,
		DepthTest:  true,
		DepthWrite: true,
		Stride:     96,
	}
	assert.Equal(t, desc.Fingerprint(), desc.Fingerprint())

	same := desc
	assert.Equal(t, desc.Fingerprint(), same.Fingerprint())
}

func TestPipelineDescFingerprintDistinguishesFields(t *testing.T) {
	base := PipelineDesc{ShaderName: "scene", CullMode: FaceCullModeBack, DepthTest: true, DepthWrite: true, Stride: 96}

	variants := []PipelineDesc{
		{ShaderName: "other", CullMode: FaceCullModeBack, DepthTest: true, DepthWrite: true, Stride: 96},
		{ShaderName: "scene", CullMode: FaceCullModeNone, DepthTest: true, DepthWrite: true, Stride: 96},
		{ShaderName: "scene", CullMode: FaceCullModeBack, DepthTest: false, DepthWrite: true, Stride: 96},
		{ShaderName: "scene", CullMode: FaceCullModeBack, DepthTest: true, DepthWrite: false, Stride: 96},
		{ShaderName: "scene", CullMode: FaceCullModeBack, DepthTest: true, DepthWrite: true, AlphaBlend: true, Stride: 96},
		{ShaderName: "scene", CullMode: FaceCullModeBack, DepthTest: true, DepthWrite: true, IsWireframe: true, Stride: 96},
		{ShaderName: "scene", CullMode: FaceCullModeBack, DepthTest: true, DepthWrite: true, Stride: 64},
	}
	for _, v := range variants {
		assert.NotEqual(t, base.Fingerprint(), v.Fingerprint(), "%+v", v)
	}
}

func TestPipelineCacheBuildsOnce(t *testing.T) {
	builds := 0
	cache := NewPipelineCache(func(desc PipelineDesc) (*VulkanPipeline, error) {
		builds++
		return &VulkanPipeline{}, nil
	})

	opaque := PipelineDesc{ShaderName: "scene", DepthTest: true, DepthWrite: true}
	blended := opaque
	blended.AlphaBlend = true

	first, err := cache.Get(opaque)
	require.NoError(t, err)
	second, err := cache.Get(opaque)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)

	_, err = cache.Get(blended)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
	assert.Equal(t, 2, cache.Len())
}

func TestPipelineCacheBuildFailureNotCached(t *testing.T) {
	fail := true
	cache := NewPipelineCache(func(desc PipelineDesc) (*VulkanPipeline, error) {
		if fail {
			return nil, errors.New("no device")
		}
		return &VulkanPipeline{}, nil
	})

	desc := PipelineDesc{ShaderName: "scene"}
	_, err := cache.Get(desc)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	fail = false
	_, err = cache.Get(desc)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}
