package assets

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/pierrec/lz4/v4"
)

// Scene container format: a fixed header, a JSON table of contents and an
// lz4-compressed binary blob holding the bulk data (pixels, vertices,
// indices). The JSON part stays human-inspectable; the blob does not.
var containerMagic = [4]byte{'L', 'A', 'N', 'T'}

const containerVersion uint32 = 1

// maxBlobLen caps the decompressed blob size so a corrupt header cannot
// request an arbitrarily large allocation.
const maxBlobLen uint64 = 1 << 31

type blobSpan struct {
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

type meshSpans struct {
	Vertices blobSpan `json:"vertices"`
	Indices  blobSpan `json:"indices"`
}

type containerHeader struct {
	Scene  SceneAsset  `json:"scene"`
	Images []blobSpan  `json:"images"`
	Meshes []meshSpans `json:"meshes"`
}

// SaveSceneAsset writes the scene to path in the container format.
func SaveSceneAsset(path string, asset *SceneAsset) error {
	header := containerHeader{
		Scene:  *asset,
		Images: make([]blobSpan, len(asset.Images)),
		Meshes: make([]meshSpans, len(asset.Meshes)),
	}

	var blob bytes.Buffer
	appendSpan := func(data []byte) blobSpan {
		span := blobSpan{Offset: uint64(blob.Len()), Length: uint64(len(data))}
		blob.Write(data)
		return span
	}

	for i := range asset.Images {
		header.Images[i] = appendSpan(asset.Images[i].Pixels)
	}
	for i := range asset.Meshes {
		mesh := &asset.Meshes[i]
		header.Meshes[i].Vertices = appendSpan(vertexBytes(mesh.Vertices))
		header.Meshes[i].Indices = appendSpan(indexBytes(mesh.Indices))
	}

	headerJSON, err := json.Marshal(&header)
	if err != nil {
		return errors.Wrap(err, "encoding scene header")
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer file.Close()

	if _, err := file.Write(containerMagic[:]); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	fixed := make([]byte, 16)
	binary.LittleEndian.PutUint32(fixed[0:], containerVersion)
	binary.LittleEndian.PutUint32(fixed[4:], uint32(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[8:], uint64(blob.Len()))
	if _, err := file.Write(fixed); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	compressor := lz4.NewWriter(file)
	if _, err := compressor.Write(blob.Bytes()); err != nil {
		return errors.Wrapf(err, "compressing %s", path)
	}
	if err := compressor.Close(); err != nil {
		return errors.Wrapf(err, "compressing %s", path)
	}

	core.LogDebug("saved scene %q to %s (%d bytes raw blob)", asset.Name, path, blob.Len())
	return nil
}

// LoadSceneAsset reads a container written by SaveSceneAsset.
func LoadSceneAsset(path string) (*SceneAsset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer file.Close()
	return ReadSceneAsset(file)
}

// ReadSceneAsset decodes a container from r.
func ReadSceneAsset(r io.Reader) (*SceneAsset, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Wrap(err, "reading container magic")
	}
	if magic != containerMagic {
		return nil, errors.Newf("bad container magic %q", magic[:])
	}

	fixed := make([]byte, 16)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, errors.Wrap(err, "reading container header")
	}
	version := binary.LittleEndian.Uint32(fixed[0:])
	if version != containerVersion {
		return nil, errors.Newf("unsupported container version %d", version)
	}
	headerLen := binary.LittleEndian.Uint32(fixed[4:])
	blobLen := binary.LittleEndian.Uint64(fixed[8:])

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, errors.Wrap(err, "reading scene header")
	}
	var header containerHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, errors.Wrap(err, "decoding scene header")
	}

	if blobLen > maxBlobLen {
		return nil, errors.Newf("blob length %d exceeds the %d byte limit", blobLen, maxBlobLen)
	}
	blob := make([]byte, blobLen)
	if _, err := io.ReadFull(lz4.NewReader(r), blob); err != nil {
		return nil, errors.Wrap(err, "decompressing scene blob")
	}

	asset := header.Scene
	cut := func(span blobSpan) ([]byte, error) {
		// Offset+Length can wrap uint64, so bound each term separately.
		if span.Offset > uint64(len(blob)) || span.Length > uint64(len(blob))-span.Offset {
			return nil, errors.Newf("blob span at %d of %d bytes outside %d byte blob", span.Offset, span.Length, len(blob))
		}
		return blob[span.Offset : span.Offset+span.Length], nil
	}

	if len(header.Images) != len(asset.Images) || len(header.Meshes) != len(asset.Meshes) {
		return nil, errors.New("header tables disagree with scene tables")
	}
	for i := range asset.Images {
		pixels, err := cut(header.Images[i])
		if err != nil {
			return nil, err
		}
		asset.Images[i].Pixels = pixels
	}
	for i := range asset.Meshes {
		vertexData, err := cut(header.Meshes[i].Vertices)
		if err != nil {
			return nil, err
		}
		indexData, err := cut(header.Meshes[i].Indices)
		if err != nil {
			return nil, err
		}
		asset.Meshes[i].Vertices, err = vertsFromBytes(vertexData)
		if err != nil {
			return nil, err
		}
		asset.Meshes[i].Indices, err = indicesFromBytes(indexData)
		if err != nil {
			return nil, err
		}
	}
	return &asset, nil
}

func vertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	size := len(vertices) * int(unsafe.Sizeof(Vertex{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

func vertsFromBytes(data []byte) ([]Vertex, error) {
	stride := int(unsafe.Sizeof(Vertex{}))
	if len(data)%stride != 0 {
		return nil, errors.Newf("vertex blob of %d bytes is not a multiple of the %d byte stride", len(data), stride)
	}
	if len(data) == 0 {
		return nil, nil
	}
	vertices := make([]Vertex, len(data)/stride)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(data)), data)
	return vertices, nil
}

func indexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	data := make([]byte, len(indices)*4)
	for i, index := range indices {
		binary.LittleEndian.PutUint32(data[i*4:], index)
	}
	return data
}

func indicesFromBytes(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, errors.Newf("index blob of %d bytes is not a multiple of 4", len(data))
	}
	indices := make([]uint32, len(data)/4)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return indices, nil
}
