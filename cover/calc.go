// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package cover loads field scanner rasters and computes their canopy
// cover: the share of valid pixels which are not pure black, taken as
// vegetation. From the TERRA REF stereo RGB canopy cover extractor.
package cover

import (
	"errors"
)

// ErrNoValidPixels is returned when every pixel of an image is marked
// nodata, leaving nothing to compute a percentage over.
var ErrNoValidPixels = errors.New("no valid pixels in image")

// Options adjusts the cover calculation.
type Options struct {
	// NoDataCutoff, when above zero, makes the calculation return
	// the -1 sentinel once the nodata share of the image exceeds
	// it. The BETYdb deployment uses 0.75.
	NoDataCutoff float64
}

// CalcMasked returns the canopy cover percentage of a raster whose
// alpha channel distinguishes data (255) from nodata (0). A pixel
// counts as canopy when any of its RGB channels is non-zero.
func CalcMasked(r *Raster, opts Options) (float64, error) {
	total := r.Width * r.Height
	if total == 0 {
		return 0, ErrNoValidPixels
	}

	var nodata, canopy int
	for i := 0; i+3 < len(r.Pix); i += 4 {
		switch r.Pix[i+3] {
		case 0:
			nodata++
		case 255:
			if int(r.Pix[i])+int(r.Pix[i+1])+int(r.Pix[i+2]) > 0 {
				canopy++
			}
		}
	}

	if opts.NoDataCutoff > 0 && float64(nodata)/float64(total) > opts.NoDataCutoff {
		return -1, nil
	}

	if total == nodata {
		return 0, ErrNoValidPixels
	}

	return float64(canopy) / float64(total-nodata) * 100.0, nil
}
