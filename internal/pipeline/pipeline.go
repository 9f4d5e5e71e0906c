// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// pipeline is the package which runs the canopy cover transformer: it
// filters the candidate files, walks each image through loading,
// masking and measuring, and writes the CSV outputs. Note that it is
// considered an "internal" package, not intended for external use,
// and no guarantee is made of the stability of any interfaces
// provided.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fieldscan.xyz/canopycover"
	"fieldscan.xyz/canopycover/cover"
	"fieldscan.xyz/canopycover/geotiff"
	"fieldscan.xyz/canopycover/internal/store"
	"fieldscan.xyz/canopycover/metadata"
	"fieldscan.xyz/canopycover/traits"
)

// The image file name extensions we support
var supportedImageExts = []string{".tif", ".tiff"}

// ErrNoImages is the precondition failure raised before the run loop
// when the supplied file list holds nothing we can process.
var ErrNoImages = errors.New("unable to find an image file to work with")

// geostreams CSV column names
var geoHeader = []string{"site", "trait", "lat", "lon", "dp_time", "source", "value", "timestamp"}

// Options configures a transformer run.
type Options struct {
	Schema    traits.Schema
	Overrides traits.Overrides
	Metadata  []metadata.Record

	// Timestamp is the run timestamp in ISO 8601 form, as supplied
	// by the hosting pipeline.
	Timestamp string
	// WorkDir is where all outputs are written.
	WorkDir string

	// Geostreams also writes canopycover_geostreams.csv with one
	// geolocated row per georeferenced image.
	Geostreams bool
	// NoDataCutoff is passed through to the cover calculation;
	// zero disables the -1 sentinel behaviour.
	NoDataCutoff float64
	// SigDigits rounds the canopy cover written to the trait CSV
	// to a number of significant digits; zero writes the full
	// float representation.
	SigDigits int

	// Graph renders a cover graph when at least two measurements
	// were taken.
	Graph bool
	// Report writes a PDF run report.
	Report bool
	// Store, when set, archives every measurement.
	Store *store.Store

	Logger *log.Logger
}

// CheckContinue verifies the preconditions of a run before any output
// is produced: a file list must be present and it must name at least
// one supported image.
func CheckContinue(files []string) error {
	if files == nil {
		return errors.New("unable to find list of files associated with this request")
	}
	for _, f := range files {
		if supportedExt(f) {
			return nil
		}
	}
	return ErrNoImages
}

// Run processes every supported image in files and returns the
// structured result for the hosting pipeline. Failures of a single
// image are logged and skipped; only an unusable working directory
// aborts the run.
func Run(files []string, opts Options) canopycover.Result {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "", 0)
	}

	datestamp, localtime := Timestamps(opts.Timestamp)

	betyPath := filepath.Join(opts.WorkDir, "canopycover.csv")
	bety, err := newCSVFile(betyPath, opts.Schema.Fields())
	if err != nil {
		return canopycover.Result{Code: -1, Error: err.Error()}
	}

	var geo *csvFile
	var geoPath string
	if opts.Geostreams {
		geoPath = filepath.Join(opts.WorkDir, "canopycover_geostreams.csv")
		geo, err = newCSVFile(geoPath, geoHeader)
		if err != nil {
			bety.close()
			return canopycover.Result{Code: -1, Error: err.Error()}
		}
	}

	_, traitVals := opts.Schema.Table()
	traitVals = traits.ApplyOverrides(opts.Schema, traitVals, opts.Overrides, opts.Metadata)
	if opts.Schema.Has("citation_year") && opts.Overrides.CitationYear == "" && len(datestamp) >= 4 {
		traitVals["citation_year"] = traits.String(datestamp[:4])
	}

	logger.Printf("Looking for images with an extension of: %s", strings.Join(supportedImageExts, ","))
	numFiles := 0
	var measurements []canopycover.Measurement
	for _, oneFile := range files {
		if !supportedExt(oneFile) {
			logger.Printf("Skipping non-supported file '%s'", oneFile)
			continue
		}
		numFiles++

		rec, err := processFile(oneFile, &opts, logger)
		if err != nil {
			logger.Printf("Error generating canopy cover for '%s'", oneFile)
			logger.Printf("    %v", err)
			continue
		}

		rawVal := strconv.FormatFloat(rec.value, 'g', -1, 64)
		if geo != nil && rec.bounds != nil {
			lat, lon := rec.bounds.CentroidLatLng()
			err = geo.write([]string{rec.plot, "Canopy Cover",
				strconv.FormatFloat(lat, 'f', -1, 64),
				strconv.FormatFloat(lon, 'f', -1, 64),
				localtime, oneFile, rawVal, datestamp})
			if err != nil {
				logger.Printf("Error writing geostreams row for '%s': %v", oneFile, err)
			}
		}

		species := traits.PlotSpecies(rec.plot, opts.Metadata, opts.Overrides)
		traitVals["canopy_cover"] = traits.String(formatCover(rec.value, opts.SigDigits))
		traitVals["species"] = traits.String(species)
		traitVals["site"] = traits.String(rec.plot)
		traitVals["local_datetime"] = traits.String(localtime)
		if err = bety.write(opts.Schema.List(traitVals)); err != nil {
			logger.Printf("Error writing trait row for '%s': %v", oneFile, err)
			continue
		}

		measurements = append(measurements, canopycover.Measurement{
			Plot:    rec.plot,
			Species: species,
			Source:  oneFile,
			Value:   rec.value,
			Time:    localtime,
		})
	}

	if err = bety.close(); err != nil {
		logger.Printf("%v", err)
	}
	if geo != nil {
		if err = geo.close(); err != nil {
			logger.Printf("%v", err)
		}
	}

	if numFiles == 0 {
		return canopycover.Result{Code: canopycover.CodeNoFiles, Error: "No files were processed"}
	}
	if len(measurements) == 0 {
		return canopycover.Result{Code: canopycover.CodeNoRecords,
			Error: "No images were able to have their canopy cover calculated"}
	}

	fileMD := []canopycover.FileMeta{{Path: betyPath, Key: "csv"}}
	if geo != nil {
		fileMD = append(fileMD, canopycover.FileMeta{Path: geoPath, Key: "csv"})
	}

	if opts.Graph {
		if path, err := writeGraph(measurements, opts.WorkDir, datestamp); err != nil {
			logger.Printf("Unable to generate cover graph: %v", err)
		} else {
			fileMD = append(fileMD, canopycover.FileMeta{Path: path, Key: "graph"})
		}
	}

	if opts.Report {
		if path, err := writeReport(measurements, opts.WorkDir, localtime); err != nil {
			logger.Printf("Unable to generate run report: %v", err)
		} else {
			fileMD = append(fileMD, canopycover.FileMeta{Path: path, Key: "pdf"})
		}
	}

	if opts.Store != nil {
		archive(opts.Store, opts.Timestamp, opts.WorkDir, measurements, logger)
	}

	return canopycover.Result{Code: canopycover.CodeOK, Files: fileMD}
}

// record is the computed outcome for a single image.
type record struct {
	plot   string
	value  float64
	bounds *geotiff.Bounds
}

// processFile loads, masks and measures one image. Any returned error
// means this image is skipped; the run is never aborted by one file.
func processFile(path string, opts *Options, logger *log.Logger) (*record, error) {
	bounds, err := geotiff.ReadBounds(path)
	if err != nil {
		return nil, fmt.Errorf("reading image bounds: %w", err)
	}

	raster, err := cover.Load(path)
	if err != nil {
		return nil, err
	}

	if !raster.HasAlpha {
		logger.Printf("Adding missing alpha channel to loaded image from '%s'", path)
		if bounds != nil {
			raster, err = cover.AddMask(path, logger)
			if err != nil {
				return nil, err
			}
		} else {
			raster.SynthesizeAlpha()
		}
	}

	value, err := cover.CalcMasked(raster, cover.Options{NoDataCutoff: opts.NoDataCutoff})
	if err != nil {
		return nil, err
	}

	return &record{
		plot:   filepath.Base(filepath.Dir(path)),
		value:  value,
		bounds: bounds,
	}, nil
}

func writeGraph(ms []canopycover.Measurement, dir string, datestamp string) (string, error) {
	path := filepath.Join(dir, "cover.png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	title := "Canopy cover"
	if datestamp != "" {
		title += " " + datestamp
	}
	err = canopycover.Graph(ms, title, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func writeReport(ms []canopycover.Measurement, dir string, localtime string) (string, error) {
	path := filepath.Join(dir, "report.pdf")
	var r canopycover.Report
	if err := r.Setup(); err != nil {
		return "", err
	}
	if err := r.AddRun("Canopy cover", localtime, ms); err != nil {
		return "", err
	}
	if err := r.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// archive records the run in the measurement archive. Archive errors
// never fail the run; the CSV outputs are the canonical result.
func archive(s *store.Store, timestamp, workDir string, ms []canopycover.Measurement, logger *log.Logger) {
	runID, err := s.AddRun(timestamp, workDir)
	if err != nil {
		logger.Printf("%v", err)
		return
	}
	for _, m := range ms {
		if err = s.AddMeasurement(runID, m); err != nil {
			logger.Printf("%v", err)
		}
	}
}

func supportedExt(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range supportedImageExts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// formatCover renders a cover value for the trait CSV, rounded to sig
// significant digits when above zero.
func formatCover(v float64, sig int) string {
	if sig > 0 {
		return strconv.FormatFloat(v, 'g', sig, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamps derives the date (YYYY-MM-DD) and the local time with
// the offset stripped (YYYY-MM-DDTHH:MM:SS) from an ISO 8601
// timestamp. Both are empty when no timestamp was supplied or it
// could not be parsed.
func Timestamps(iso string) (datestamp, localtime string) {
	if iso == "" {
		return "", ""
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format("2006-01-02"), t.Format("2006-01-02T15:04:05")
		}
	}
	return "", ""
}
