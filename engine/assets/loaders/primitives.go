package loaders

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lantern-engine/lantern/engine/assets"
)

// Primitive names the manifest accepts.
const (
	PRIMITIVE_QUAD = "quad"
	PRIMITIVE_CUBE = "cube"
)

// PrimitiveMesh generates the vertex and index data for a named built-in
// primitive, unit sized and centred on the origin.
func PrimitiveMesh(name string) ([]assets.Vertex, []uint32, error) {
	switch name {
	case PRIMITIVE_QUAD:
		return quadMesh()
	case PRIMITIVE_CUBE:
		return cubeMesh()
	default:
		return nil, nil, errors.Newf("unknown primitive %q", name)
	}
}

func primitiveVertex(position, normal mgl32.Vec3, tangent mgl32.Vec4, u, v float32) assets.Vertex {
	vertex := assets.Vertex{
		Position: position,
		Normal:   normal,
		Tangent:  tangent,
		Color:    mgl32.Vec4{1, 1, 1, 1},
	}
	vertex.UV[0] = mgl32.Vec2{u, v}
	return vertex
}

func quadMesh() ([]assets.Vertex, []uint32, error) {
	normal := mgl32.Vec3{0, 0, 1}
	tangent := mgl32.Vec4{1, 0, 0, 1}
	vertices := []assets.Vertex{
		primitiveVertex(mgl32.Vec3{-0.5, -0.5, 0}, normal, tangent, 0, 1),
		primitiveVertex(mgl32.Vec3{0.5, -0.5, 0}, normal, tangent, 1, 1),
		primitiveVertex(mgl32.Vec3{0.5, 0.5, 0}, normal, tangent, 1, 0),
		primitiveVertex(mgl32.Vec3{-0.5, 0.5, 0}, normal, tangent, 0, 0),
	}
	return vertices, []uint32{0, 1, 2, 0, 2, 3}, nil
}

// cubeFace describes one face by its outward normal, tangent and the two
// in-plane axes spanning the face.
type cubeFace struct {
	normal  mgl32.Vec3
	tangent mgl32.Vec4
	axisU   mgl32.Vec3
	axisV   mgl32.Vec3
}

func cubeMesh() ([]assets.Vertex, []uint32, error) {
	faces := []cubeFace{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec4{1, 0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec4{-1, 0, 0, 1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec4{0, 0, -1, 1}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec4{0, 0, 1, 1}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec4{1, 0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec4{1, 0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}

	vertices := make([]assets.Vertex, 0, len(faces)*4)
	indices := make([]uint32, 0, len(faces)*6)
	for _, face := range faces {
		center := face.normal.Mul(0.5)
		base := uint32(len(vertices))
		for _, uv := range [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}} {
			su := uv[0]*2 - 1
			sv := 1 - uv[1]*2
			position := center.Add(face.axisU.Mul(0.5 * su)).Add(face.axisV.Mul(0.5 * sv))
			vertices = append(vertices, primitiveVertex(position, face.normal, face.tangent, uv[0], uv[1]))
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices, nil
}
