package loaders

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lantern-engine/lantern/engine/assets"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/pelletier/go-toml/v2"
)

// SceneManifest is the authoring-side description of a scene: image files
// on disk, material parameters and mesh primitives, assembled into the
// packed container by BuildScene. Optional fields are pointers so an
// omitted value and an explicit zero stay distinguishable.
type SceneManifest struct {
	Name      string             `toml:"name"`
	Images    []ManifestImage    `toml:"images"`
	Materials []ManifestMaterial `toml:"materials"`
	Meshes    []ManifestMesh     `toml:"meshes"`
	Nodes     []ManifestNode     `toml:"nodes"`
	Roots     []int              `toml:"roots"`
}

type ManifestImage struct {
	File string `toml:"file"`
}

type ManifestMaterial struct {
	Name              string      `toml:"name"`
	BaseColor         *[4]float32 `toml:"base_color"`
	Emissive          [3]float32  `toml:"emissive"`
	Metallic          *float32    `toml:"metallic"`
	Roughness         *float32    `toml:"roughness"`
	NormalScale       *float32    `toml:"normal_scale"`
	OcclusionStrength *float32    `toml:"occlusion_strength"`
	AlphaMode         string      `toml:"alpha_mode"`
	AlphaCutoff       *float32    `toml:"alpha_cutoff"`
	DoubleSided       bool        `toml:"double_sided"`

	BaseColorTexture         *int `toml:"base_color_texture"`
	MetallicRoughnessTexture *int `toml:"metallic_roughness_texture"`
	NormalTexture            *int `toml:"normal_texture"`
	OcclusionTexture         *int `toml:"occlusion_texture"`
	EmissiveTexture          *int `toml:"emissive_texture"`
}

type ManifestMesh struct {
	Name      string `toml:"name"`
	Primitive string `toml:"primitive"`
	Material  int    `toml:"material"`
}

type ManifestNode struct {
	Name        string     `toml:"name"`
	Mesh        *int       `toml:"mesh"`
	Translation [3]float32 `toml:"translation"`
	Rotation    [3]float32 `toml:"rotation"`
	Scale       *float32   `toml:"scale"`
	Children    []int      `toml:"children"`
}

// BuildScene reads the manifest at path and assembles a SceneAsset ready
// for SaveSceneAsset. Image paths resolve relative to the manifest's
// directory.
func BuildScene(path string) (*assets.SceneAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", path)
	}
	var manifest SceneManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, "decoding manifest %s", path)
	}
	return BuildSceneFromManifest(&manifest, filepath.Dir(path))
}

// BuildSceneFromManifest assembles the scene, loading image files
// relative to baseDir.
func BuildSceneFromManifest(manifest *SceneManifest, baseDir string) (*assets.SceneAsset, error) {
	scene := &assets.SceneAsset{
		Name:      manifest.Name,
		Images:    make([]assets.ImageAsset, 0, len(manifest.Images)),
		Materials: make([]assets.MaterialAsset, 0, len(manifest.Materials)),
		Meshes:    make([]assets.MeshAsset, 0, len(manifest.Meshes)),
		Nodes:     make([]assets.NodeAsset, 0, len(manifest.Nodes)),
		Roots:     manifest.Roots,
	}

	for i := range manifest.Images {
		image, err := LoadImage(filepath.Join(baseDir, manifest.Images[i].File))
		if err != nil {
			return nil, err
		}
		scene.Images = append(scene.Images, *image)
	}

	for i := range manifest.Materials {
		scene.Materials = append(scene.Materials, materialFromManifest(&manifest.Materials[i]))
	}

	for i := range manifest.Meshes {
		entry := &manifest.Meshes[i]
		vertices, indices, err := PrimitiveMesh(entry.Primitive)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q", entry.Name)
		}
		scene.Meshes = append(scene.Meshes, assets.MeshAsset{
			Name:     entry.Name,
			Material: entry.Material,
			Vertices: vertices,
			Indices:  indices,
		})
	}

	for i := range manifest.Nodes {
		scene.Nodes = append(scene.Nodes, nodeFromManifest(&manifest.Nodes[i]))
	}

	if err := scene.ValidateReferences(); err != nil {
		return nil, err
	}
	core.LogInfo("assembled scene %q: %d images, %d materials, %d meshes, %d nodes",
		scene.Name, len(scene.Images), len(scene.Materials), len(scene.Meshes), len(scene.Nodes))
	return scene, nil
}

func materialFromManifest(m *ManifestMaterial) assets.MaterialAsset {
	material := assets.MaterialAsset{
		Name:              m.Name,
		BaseColorFactor:   [4]float32{1, 1, 1, 1},
		EmissiveFactor:    m.Emissive,
		MetallicFactor:    scalarOr(m.Metallic, 1),
		RoughnessFactor:   scalarOr(m.Roughness, 1),
		NormalScale:       scalarOr(m.NormalScale, 1),
		OcclusionStrength: scalarOr(m.OcclusionStrength, 1),
		AlphaMode:         m.AlphaMode,
		AlphaCutoff:       scalarOr(m.AlphaCutoff, 0.5),
		DoubleSided:       m.DoubleSided,

		BaseColorTexture:         indexOrNone(m.BaseColorTexture),
		MetallicRoughnessTexture: indexOrNone(m.MetallicRoughnessTexture),
		NormalTexture:            indexOrNone(m.NormalTexture),
		OcclusionTexture:         indexOrNone(m.OcclusionTexture),
		EmissiveTexture:          indexOrNone(m.EmissiveTexture),
	}
	if m.BaseColor != nil {
		material.BaseColorFactor = *m.BaseColor
	}
	if material.AlphaMode == "" {
		material.AlphaMode = assets.ALPHA_MODE_OPAQUE
	}
	return material
}

// nodeFromManifest composes translation, XYZ Euler rotation in degrees
// and uniform scale into the node transform.
func nodeFromManifest(n *ManifestNode) assets.NodeAsset {
	scale := scalarOr(n.Scale, 1)
	rotation := mgl32.AnglesToQuat(
		mgl32.DegToRad(n.Rotation[0]),
		mgl32.DegToRad(n.Rotation[1]),
		mgl32.DegToRad(n.Rotation[2]),
		mgl32.XYZ,
	)
	transform := mgl32.Translate3D(n.Translation[0], n.Translation[1], n.Translation[2]).
		Mul4(rotation.Mat4()).
		Mul4(mgl32.Scale3D(scale, scale, scale))

	node := assets.NodeAsset{
		Name:     n.Name,
		Children: n.Children,
		Mesh:     indexOrNone(n.Mesh),
	}
	copy(node.Transform[:], transform[:])
	return node
}

func scalarOr(value *float32, fallback float32) float32 {
	if value == nil {
		return fallback
	}
	return *value
}

func indexOrNone(value *int) int {
	if value == nil {
		return -1
	}
	return *value
}
