// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package cover

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
)

// AddMask builds a nodata alpha channel for a georeferenced image by
// delegating to the GDAL toolkit: a virtual raster is built over the
// source file with a nodata sentinel and an alpha band, materialised
// to a compressed TIFF, and loaded back. The temporary file list,
// virtual raster and materialised raster are removed whether or not
// the toolkit calls succeed.
func AddMask(sourceFile string, logger *log.Logger) (*Raster, error) {
	var tempFiles []string
	defer func() {
		for _, fn := range tempFiles {
			if err := os.Remove(fn); err != nil && !os.IsNotExist(err) {
				logger.Printf("Failed to remove temporary file %s: %v", fn, err)
			}
		}
	}()

	abs, err := filepath.Abs(sourceFile)
	if err != nil {
		return nil, err
	}

	list, err := os.CreateTemp("", "list_*.txt")
	if err != nil {
		return nil, fmt.Errorf("creating file list: %w", err)
	}
	tempFiles = append(tempFiles, list.Name())
	if _, err = list.WriteString(abs); err != nil {
		list.Close()
		return nil, fmt.Errorf("writing file list: %w", err)
	}
	if err = list.Close(); err != nil {
		return nil, fmt.Errorf("writing file list: %w", err)
	}

	vrt, err := tempName("mask_*.vrt")
	if err != nil {
		return nil, err
	}
	tempFiles = append(tempFiles, vrt)

	cmd := exec.Command("gdalbuildvrt", "-addalpha", "-srcnodata", "-99 -99 -99",
		"-overwrite", "-input_file_list", list.Name(), vrt)
	if out, err := cmd.CombinedOutput(); err != nil {
		logger.Printf("gdalbuildvrt failed for %s: %v\n%s", sourceFile, err, out)
		return nil, fmt.Errorf("generating alpha mask for %s: %w", sourceFile, err)
	}

	masked, err := tempName("mask_*.tif")
	if err != nil {
		return nil, err
	}
	tempFiles = append(tempFiles, masked)

	cmd = exec.Command("gdal_translate", "-co", "COMPRESS=LZW", "-co", "BIGTIFF=YES", vrt, masked)
	if out, err := cmd.CombinedOutput(); err != nil {
		logger.Printf("gdal_translate failed for %s: %v\n%s", sourceFile, err, out)
		return nil, fmt.Errorf("generating alpha mask for %s: %w", sourceFile, err)
	}

	r, err := Load(masked)
	if err != nil {
		return nil, fmt.Errorf("loading masked raster for %s: %w", sourceFile, err)
	}
	r.HasAlpha = true
	return r, nil
}

// tempName reserves a temporary file name without keeping it open,
// as the GDAL tools want to create their output files themselves.
func tempName(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	name := f.Name()
	f.Close()
	return name, nil
}
