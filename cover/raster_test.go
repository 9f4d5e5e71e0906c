// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package cover

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"fieldscan.xyz/canopycover/internal/tifftest"
)

func checker(x, y int) [4]uint8 {
	if (x+y)%2 == 0 {
		return [4]uint8{0, 200, 0, 255}
	}
	return [4]uint8{0, 0, 0, 0}
}

func TestLoadRGB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rgb.tif")
	if err := tifftest.WriteTIFF(path, 4, 2, 3, checker, nil); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.HasAlpha {
		t.Error("3 sample image should not be flagged HasAlpha")
	}
	if r.Width != 4 || r.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 4x2", r.Width, r.Height)
	}
	if len(r.Pix) != 4*2*4 {
		t.Fatalf("pix length = %d, want %d", len(r.Pix), 4*2*4)
	}
	if r.Pix[1] != 200 {
		t.Errorf("green channel of first pixel = %d, want 200", r.Pix[1])
	}

	r.SynthesizeAlpha()
	for i := 3; i < len(r.Pix); i += 4 {
		if r.Pix[i] != 255 {
			t.Fatalf("alpha at %d = %d after SynthesizeAlpha, want 255", i, r.Pix[i])
		}
	}
}

func TestLoadRGBA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rgba.tif")
	if err := tifftest.WriteTIFF(path, 4, 2, 4, checker, nil); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !r.HasAlpha {
		t.Error("4 sample image should be flagged HasAlpha")
	}
	if r.Pix[3] != 255 || r.Pix[7] != 0 {
		t.Errorf("alpha channel not preserved: %d, %d", r.Pix[3], r.Pix[7])
	}
}

func TestLoadGray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gray.tif")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture: %v", err)
	}
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	if err := tiff.Encode(f, img, nil); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	f.Close()

	_, err = Load(path)
	if !errors.Is(err, ErrBadDimensions) {
		t.Errorf("Load of a grayscale image: error = %v, want ErrBadDimensions", err)
	}
}

func TestLoadBad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tif")
	if err := os.WriteFile(path, []byte("II*"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of a truncated file should fail")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.tif")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}
