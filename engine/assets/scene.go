package assets

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lantern-engine/lantern/engine/core"
)

// Vertex is the interleaved layout every mesh uses: position, normal,
// tangent with handedness, five texture coordinate channels and a colour.
// 96 bytes per vertex.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Tangent  mgl32.Vec4
	UV       [5]mgl32.Vec2
	Color    mgl32.Vec4
}

// Alpha modes, matching the material flag encoding.
const (
	ALPHA_MODE_OPAQUE = "OPAQUE"
	ALPHA_MODE_MASK   = "MASK"
	ALPHA_MODE_BLEND  = "BLEND"
)

// ImageAsset is a decoded texture: tightly packed RGBA8 pixels.
type ImageAsset struct {
	Name   string `json:"name"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Pixels []byte `json:"-"`
}

// MaterialAsset references images by index into the owning scene's image
// table; -1 means the channel has no texture and renders with the
// channel's neutral default.
type MaterialAsset struct {
	Name string `json:"name"`

	BaseColorFactor   [4]float32 `json:"base_color_factor"`
	EmissiveFactor    [3]float32 `json:"emissive_factor"`
	MetallicFactor    float32    `json:"metallic_factor"`
	RoughnessFactor   float32    `json:"roughness_factor"`
	NormalScale       float32    `json:"normal_scale"`
	OcclusionStrength float32    `json:"occlusion_strength"`

	AlphaMode   string  `json:"alpha_mode"`
	AlphaCutoff float32 `json:"alpha_cutoff"`
	DoubleSided bool    `json:"double_sided"`

	BaseColorTexture         int `json:"base_color_texture"`
	MetallicRoughnessTexture int `json:"metallic_roughness_texture"`
	NormalTexture            int `json:"normal_texture"`
	OcclusionTexture         int `json:"occlusion_texture"`
	EmissiveTexture          int `json:"emissive_texture"`
}

// MeshAsset is one indexed triangle list with a material index into the
// owning scene's material table.
type MeshAsset struct {
	Name     string   `json:"name"`
	Material int      `json:"material"`
	Vertices []Vertex `json:"-"`
	Indices  []uint32 `json:"-"`
}

// NodeAsset is one hierarchy entry. Mesh is -1 for pure transform groups.
type NodeAsset struct {
	Name      string      `json:"name"`
	Transform [16]float32 `json:"transform"`
	Children  []int       `json:"children,omitempty"`
	Mesh      int         `json:"mesh"`
}

// SceneAsset is the on-disk shape of a whole scene. All cross references
// are indices into the sibling tables.
type SceneAsset struct {
	Name      string          `json:"name"`
	Images    []ImageAsset    `json:"images"`
	Materials []MaterialAsset `json:"materials"`
	Meshes    []MeshAsset     `json:"meshes"`
	Nodes     []NodeAsset     `json:"nodes"`
	Roots     []int           `json:"roots"`
}

// TransformMat4 converts the column-major array into a matrix.
func (n *NodeAsset) TransformMat4() mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], n.Transform[:])
	return m
}

// ValidateReferences checks every cross-table index before any upload
// starts. Node hierarchy problems surface core.ErrMalformedSceneGraph;
// dangling image or material references are plain errors for the importer
// to wrap.
func (s *SceneAsset) ValidateReferences() error {
	textureIndex := func(owner string, index int) error {
		if index < -1 || index >= len(s.Images) {
			return errors.Newf("material %q references image %d outside the image table", owner, index)
		}
		return nil
	}
	for i := range s.Materials {
		material := &s.Materials[i]
		for _, index := range []int{
			material.BaseColorTexture,
			material.MetallicRoughnessTexture,
			material.NormalTexture,
			material.OcclusionTexture,
			material.EmissiveTexture,
		} {
			if err := textureIndex(material.Name, index); err != nil {
				return err
			}
		}
	}
	for i := range s.Meshes {
		if s.Meshes[i].Material < 0 || s.Meshes[i].Material >= len(s.Materials) {
			return errors.Newf("mesh %q references material %d outside the material table", s.Meshes[i].Name, s.Meshes[i].Material)
		}
	}
	for i := range s.Nodes {
		if s.Nodes[i].Mesh < -1 || s.Nodes[i].Mesh >= len(s.Meshes) {
			return errors.Wrapf(core.ErrMalformedSceneGraph, "node %q references mesh %d outside the mesh table", s.Nodes[i].Name, s.Nodes[i].Mesh)
		}
	}
	return nil
}
