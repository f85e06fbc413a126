package loader

import (
	"errors"
	"fmt"
	"io"

	"Tilt3D/internal/renderer"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
)

var ErrNotHDR = errors.New("hdr: decoded image carries no high dynamic range data")

// DecodeHDR reads a Radiance RGBE image into linear RGB floats, top row
// first, ready to be sampled as an equirectangular reflection map.
func DecodeHDR(r io.Reader, location string) (*renderer.Environment, error) {
	img, err := rgbe.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode hdr %s: %w", location, err)
	}
	h, ok := img.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("decode hdr %s: %w", location, ErrNotHDR)
	}

	b := h.Bounds()
	width, height := b.Dx(), b.Dy()
	pixels := make([]float32, 0, width*height*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := h.HDRAt(x, y).HDRRGBA()
			pixels = append(pixels, float32(r), float32(g), float32(bl))
		}
	}

	return &renderer.Environment{
		Width:   width,
		Height:  height,
		Pixels:  pixels,
		Mapping: renderer.EquirectangularReflectionMapping,
		Source:  location,
	}, nil
}
