package forge

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gputypes"
)

// TextureDataRGBA converts img to tightly packed 8-bit RGBA texel data
// suitable for UploadTexture with an RGBA8Unorm texture. The returned
// bytesPerRow is the tight stride (width * 4).
func TextureDataRGBA(img image.Image) (data []byte, bytesPerRow uint32) {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		converted := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Draw(converted, converted.Bounds(), img, bounds.Min, xdraw.Src)
		rgba = converted
	}
	return rgba.Pix, uint32(bounds.Dx() * 4)
}

// ScaleRGBA resamples img to width x height with Catmull-Rom filtering.
func ScaleRGBA(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// NewTextureFromImage creates an RGBA8 texture sized to img and uploads its
// pixels. The texture gets copy-destination usage in addition to usage.
func (c *Context) NewTextureFromImage(label string, img image.Image, usage gputypes.TextureUsage) (TextureHandle, error) {
	bounds := img.Bounds()
	h, err := c.textures.Create(TextureDescriptor{
		Label: label,
		Size: gputypes.Extent3D{
			Width:  uint32(bounds.Dx()),
			Height: uint32(bounds.Dy()),
		},
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage:     usage | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return TextureHandle{}, err
	}

	data, bytesPerRow := TextureDataRGBA(img)
	if err := c.UploadTexture(h, data, bytesPerRow); err != nil {
		_ = c.textures.Destroy(h)
		return TextureHandle{}, fmt.Errorf("texture %q: %w", label, err)
	}
	return h, nil
}
