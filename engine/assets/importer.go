package assets

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/lantern-engine/lantern/engine/scene"
)

// MaterialTextureSet carries the resident texture handle per material
// channel. core.InvalidHandle marks a channel with no texture; the
// uploader substitutes the channel's neutral default at bind time.
type MaterialTextureSet struct {
	BaseColor         core.Handle
	MetallicRoughness core.Handle
	Normal            core.Handle
	Occlusion         core.Handle
	Emissive          core.Handle
}

// GPUUploader is the slice of the renderer the importer drives. Uploads
// return stable handles; releases are idempotent.
type GPUUploader interface {
	UploadTexture(image *ImageAsset) (core.Handle, error)
	UploadGeometry(mesh *MeshAsset) (core.Handle, error)
	BindMaterial(material *MaterialAsset, textures MaterialTextureSet) (core.Handle, error)
	ReleaseTexture(handle core.Handle)
	ReleaseGeometry(handle core.Handle)
	ReleaseMaterial(handle core.Handle)
}

// ImportedScene is a scene made fully GPU-resident: the flattened node
// graph plus every handle the import created, in creation order.
type ImportedScene struct {
	// ID distinguishes imports of the same asset, for logging and
	// cache keys.
	ID         uuid.UUID
	Name       string
	Graph      scene.Graph
	Textures   []core.Handle
	Geometries []core.Handle
	Materials  []core.Handle
}

// Release frees every resource the import created. Safe to call once on
// a partially built scene.
func (is *ImportedScene) Release(uploader GPUUploader) {
	for _, handle := range is.Materials {
		uploader.ReleaseMaterial(handle)
	}
	is.Materials = nil
	for _, handle := range is.Geometries {
		uploader.ReleaseGeometry(handle)
	}
	is.Geometries = nil
	for _, handle := range is.Textures {
		uploader.ReleaseTexture(handle)
	}
	is.Textures = nil
}

// Importer turns scene assets into resident scenes through a GPUUploader.
type Importer struct {
	uploader GPUUploader
}

func NewImporter(uploader GPUUploader) *Importer {
	return &Importer{uploader: uploader}
}

// Import validates the asset, uploads its images, meshes and materials
// and builds the renderable graph. Hierarchy defects surface
// core.ErrMalformedSceneGraph before anything touches the device. Any
// upload failure releases everything created so far and surfaces
// core.ErrAssetImportFailed wrapping the cause.
func (imp *Importer) Import(asset *SceneAsset) (*ImportedScene, error) {
	if err := asset.ValidateReferences(); err != nil {
		if errors.Is(err, core.ErrMalformedSceneGraph) {
			return nil, err
		}
		return nil, errors.Wrapf(core.ErrAssetImportFailed, "scene %q: %v", asset.Name, err)
	}

	graph := buildGraph(asset)
	if err := graph.Validate(); err != nil {
		return nil, errors.Wrapf(err, "scene %q", asset.Name)
	}

	imported := &ImportedScene{
		ID:    uuid.New(),
		Name:  asset.Name,
		Graph: graph,
	}
	fail := func(err error) (*ImportedScene, error) {
		imported.Release(imp.uploader)
		core.LogError("import of scene %q failed: %v", asset.Name, err)
		return nil, errors.Wrapf(core.ErrAssetImportFailed, "scene %q: %v", asset.Name, err)
	}

	for i := range asset.Images {
		handle, err := imp.uploader.UploadTexture(&asset.Images[i])
		if err != nil {
			return fail(err)
		}
		imported.Textures = append(imported.Textures, handle)
	}

	for i := range asset.Meshes {
		handle, err := imp.uploader.UploadGeometry(&asset.Meshes[i])
		if err != nil {
			return fail(err)
		}
		imported.Geometries = append(imported.Geometries, handle)
	}

	for i := range asset.Materials {
		material := &asset.Materials[i]
		textures := MaterialTextureSet{
			BaseColor:         imported.textureAt(material.BaseColorTexture),
			MetallicRoughness: imported.textureAt(material.MetallicRoughnessTexture),
			Normal:            imported.textureAt(material.NormalTexture),
			Occlusion:         imported.textureAt(material.OcclusionTexture),
			Emissive:          imported.textureAt(material.EmissiveTexture),
		}
		handle, err := imp.uploader.BindMaterial(material, textures)
		if err != nil {
			return fail(err)
		}
		imported.Materials = append(imported.Materials, handle)
	}

	// Patch the graph's mesh nodes with the resident handles.
	for i := range imported.Graph.Nodes {
		node := &imported.Graph.Nodes[i]
		if node.Kind != scene.NODE_KIND_MESH {
			continue
		}
		meshIndex := asset.Nodes[i].Mesh
		node.Geometry = imported.Geometries[meshIndex]
		node.Material = imported.Materials[asset.Meshes[meshIndex].Material]
	}

	core.LogInfo("imported scene %q: %d textures, %d meshes, %d materials, %d nodes",
		asset.Name, len(imported.Textures), len(imported.Geometries), len(imported.Materials), len(imported.Graph.Nodes))
	return imported, nil
}

func (is *ImportedScene) textureAt(index int) core.Handle {
	if index < 0 {
		return core.InvalidHandle
	}
	return is.Textures[index]
}

func buildGraph(asset *SceneAsset) scene.Graph {
	graph := scene.Graph{
		Nodes: make([]scene.Node, len(asset.Nodes)),
		Roots: append([]int(nil), asset.Roots...),
	}
	for i := range asset.Nodes {
		nodeAsset := &asset.Nodes[i]
		node := scene.Node{
			Name:      nodeAsset.Name,
			Kind:      scene.NODE_KIND_GROUP,
			Transform: nodeAsset.TransformMat4(),
			Children:  append([]int(nil), nodeAsset.Children...),
		}
		if nodeAsset.Mesh >= 0 {
			node.Kind = scene.NODE_KIND_MESH
		}
		graph.Nodes[i] = node
	}
	return graph
}
