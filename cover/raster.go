// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package cover

import (
	"errors"
	"fmt"
	"image"
	"os"

	"golang.org/x/image/tiff"
)

// ErrBadDimensions marks an image without the expected three or four
// channels, such as a grayscale scan. The file is skipped; the run
// carries on with the next one.
var ErrBadDimensions = errors.New("unexpected image dimensions")

// Raster is a decoded image held as interleaved RGBA bytes, with
// alpha 255 marking data pixels and alpha 0 marking nodata.
type Raster struct {
	Width, Height int
	Pix           []uint8

	// HasAlpha records whether the source file carried its own
	// alpha channel, as opposed to one synthesized after loading.
	HasAlpha bool
}

// Load reads a TIFF file into a Raster. Images stored with an alpha
// channel are used as is and flagged HasAlpha; plain RGB images are
// loaded with alpha unset, ready for SynthesizeAlpha or the GDAL
// based AddMask.
func Load(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	b := img.Bounds()
	switch im := img.(type) {
	case *image.NRGBA:
		return &Raster{
			Width:    b.Dx(),
			Height:   b.Dy(),
			Pix:      packPix(im.Pix, im.Stride, b.Dx(), b.Dy()),
			HasAlpha: true,
		}, nil
	case *image.RGBA:
		return &Raster{
			Width:  b.Dx(),
			Height: b.Dy(),
			Pix:    packPix(im.Pix, im.Stride, b.Dx(), b.Dy()),
		}, nil
	case *image.Gray, *image.Gray16:
		return nil, fmt.Errorf("%w: %s has a single channel", ErrBadDimensions, path)
	default:
		return nil, fmt.Errorf("%w: %s decoded as %T", ErrBadDimensions, path, img)
	}
}

// SynthesizeAlpha marks every pixel as valid data. This is the alpha
// channel used for images which carry no georeferencing, where there
// is no nodata sentinel to distinguish background from sensor data.
func (r *Raster) SynthesizeAlpha() {
	for i := 3; i < len(r.Pix); i += 4 {
		r.Pix[i] = 255
	}
}

// packPix copies image rows into a tightly packed buffer, dropping
// any per-row padding the decoder left in place.
func packPix(pix []uint8, stride, w, h int) []uint8 {
	out := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		copy(out[y*w*4:(y+1)*w*4], pix[y*stride:y*stride+w*4])
	}
	return out
}
