// Package loaders decodes source asset files into the engine's in-memory
// asset types.
package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lantern-engine/lantern/engine/assets"
	"github.com/lantern-engine/lantern/engine/core"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// LoadImage decodes a PNG, JPEG or BMP file into tightly packed RGBA8.
func LoadImage(path string) (*assets.ImageAsset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening image %s", path)
	}
	defer file.Close()

	decoded, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", path)
	}

	bounds := decoded.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, xdraw.Src)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	core.LogDebug("loaded %s image %s (%dx%d)", format, path, bounds.Dx(), bounds.Dy())

	return &assets.ImageAsset{
		Name:   name,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}, nil
}
