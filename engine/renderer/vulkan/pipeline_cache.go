package vulkan

import (
	"encoding/binary"
	"hash/fnv"
)

// PipelineDesc is the canonical description of a pipeline's observable
// configuration. Two descs with equal fingerprints share one pipeline.
type PipelineDesc struct {
	ShaderName  string
	CullMode    FaceCullMode
	IsWireframe bool
	DepthTest   bool
	DepthWrite  bool
	AlphaBlend  bool
	Stride      uint32
}

// Fingerprint folds every field that affects pipeline state into one
// key. Field order is fixed; changing it invalidates nothing at runtime
// since the cache never persists.
func (d PipelineDesc) Fingerprint() uint64 {
	h := fnv.New64a()
	h.Write([]byte(d.ShaderName))
	h.Write([]byte{0})

	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], uint32(d.CullMode))
	binary.LittleEndian.PutUint32(scratch[4:], d.Stride)
	h.Write(scratch[:])

	flags := byte(0)
	if d.IsWireframe {
		flags |= 1
	}
	if d.DepthTest {
		flags |= 2
	}
	if d.DepthWrite {
		flags |= 4
	}
	if d.AlphaBlend {
		flags |= 8
	}
	h.Write([]byte{flags})
	return h.Sum64()
}

// pipelineBuilder turns a desc into a live pipeline. The indirection
// keeps cache behaviour observable without a device.
type pipelineBuilder func(desc PipelineDesc) (*VulkanPipeline, error)

// PipelineCache hands out pipelines keyed by configuration fingerprint,
// building each configuration exactly once.
type PipelineCache struct {
	build     pipelineBuilder
	pipelines map[uint64]*VulkanPipeline
}

func NewPipelineCache(build pipelineBuilder) *PipelineCache {
	return &PipelineCache{
		build:     build,
		pipelines: make(map[uint64]*VulkanPipeline),
	}
}

// Get returns the pipeline for desc, building it on first use.
func (pc *PipelineCache) Get(desc PipelineDesc) (*VulkanPipeline, error) {
	key := desc.Fingerprint()
	if pipeline, ok := pc.pipelines[key]; ok {
		return pipeline, nil
	}
	pipeline, err := pc.build(desc)
	if err != nil {
		return nil, err
	}
	pc.pipelines[key] = pipeline
	return pipeline, nil
}

// Len reports how many distinct pipelines have been built.
func (pc *PipelineCache) Len() int {
	return len(pc.pipelines)
}

// Destroy releases every cached pipeline.
func (pc *PipelineCache) Destroy(context *VulkanContext) {
	for key, pipeline := range pc.pipelines {
		pipeline.Destroy(context)
		delete(pc.pipelines, key)
	}
}
