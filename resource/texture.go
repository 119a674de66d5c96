package resource

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// TextureData is the decoded, RGBA8 CPU-side form of a texture asset.
// Loaders hand this to the caller, who uploads it via vram's staging
// ring (spec.md §4.2) and wraps the resulting image in a sampler.
type TextureData struct {
	Width, Height int
	Pixels        []byte // tightly packed RGBA8, row-major
}

// LoadTexture decodes a PNG/JPEG file into RGBA8, grounded on
// mrigankad-gorenderengine/scene/gltf_loader.go:decodeImageBytes.
func LoadTexture(id, path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %q: %w", path, err)
	}
	return decodeTexture(data)
}

func decodeTexture(data []byte) (*TextureData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("resource: decode texture: %w", err)
	}
	return rgba8(img), nil
}

func rgba8(img image.Image) *TextureData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return &TextureData{Width: bounds.Dx(), Height: bounds.Dy(), Pixels: rgba.Pix}
}

// Resize produces a new RGBA8 buffer scaled to (width, height) using
// a Catmull-Rom resampler, for mipless textures whose source
// resolution doesn't match the descriptor array's expected size.
func (t *TextureData) Resize(width, height int) *TextureData {
	src := &image.RGBA{
		Pix:    t.Pixels,
		Stride: t.Width * 4,
		Rect:   image.Rect(0, 0, t.Width, t.Height),
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return &TextureData{Width: width, Height: height, Pixels: dst.Pix}
}
