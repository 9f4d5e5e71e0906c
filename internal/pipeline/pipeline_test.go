// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"encoding/csv"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"fieldscan.xyz/canopycover"
	"fieldscan.xyz/canopycover/internal/store"
	"fieldscan.xyz/canopycover/internal/tifftest"
	"fieldscan.xyz/canopycover/metadata"
	"fieldscan.xyz/canopycover/traits"
)

func quiet() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// writePlotImage writes a test image under a plot directory and
// returns its path.
func writePlotImage(t *testing.T, dir, plot, name string, w, h, samples int, px func(x, y int) [4]uint8, geo *tifftest.Geo) string {
	t.Helper()
	plotdir := filepath.Join(dir, plot)
	if err := os.MkdirAll(plotdir, 0755); err != nil {
		t.Fatalf("creating plot dir: %v", err)
	}
	path := filepath.Join(plotdir, name)
	if err := tifftest.WriteTIFF(path, w, h, samples, px, geo); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return rows
}

func TestTimestamps(t *testing.T) {
	cases := []struct {
		iso, datestamp, localtime string
	}{
		{"2018-05-01T13:25:10-07:00", "2018-05-01", "2018-05-01T13:25:10"},
		{"2018-05-01T13:25:10", "2018-05-01", "2018-05-01T13:25:10"},
		{"2018-05-01 13:25:10", "2018-05-01", "2018-05-01T13:25:10"},
		{"2018-05-01", "2018-05-01", "2018-05-01T00:00:00"},
		{"yesterday", "", ""},
		{"", "", ""},
	}

	for _, c := range cases {
		datestamp, localtime := Timestamps(c.iso)
		if datestamp != c.datestamp || localtime != c.localtime {
			t.Errorf("Timestamps(%q) = %q, %q, want %q, %q",
				c.iso, datestamp, localtime, c.datestamp, c.localtime)
		}
	}
}

func TestCheckContinue(t *testing.T) {
	if err := CheckContinue(nil); err == nil {
		t.Error("nil file list should fail the precondition check")
	}
	if err := CheckContinue([]string{"readme.txt", "scan.jpg"}); !errors.Is(err, ErrNoImages) {
		t.Errorf("list without images: error = %v, want ErrNoImages", err)
	}
	if err := CheckContinue([]string{"readme.txt", "scan.TIF"}); err != nil {
		t.Errorf("list with an image should pass, got %v", err)
	}
	if err := CheckContinue([]string{}); !errors.Is(err, ErrNoImages) {
		t.Errorf("empty list: error = %v, want ErrNoImages", err)
	}
}

func TestRunBasic(t *testing.T) {
	dir := t.TempDir()
	// 16 pixels, 2 of them green
	img := writePlotImage(t, dir, "plot1", "scan.tif", 4, 4, 3, func(x, y int) [4]uint8 {
		if y == 0 && x < 2 {
			return [4]uint8{0, 180, 0, 255}
		}
		return [4]uint8{0, 0, 0, 255}
	}, nil)

	db, err := store.Open(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer db.Close()

	res := Run([]string{img, filepath.Join(dir, "notes.txt")}, Options{
		Schema:    traits.BasicSchema(),
		Timestamp: "2018-05-01T13:25:10-07:00",
		WorkDir:   dir,
		SigDigits: 3,
		Store:     db,
		Logger:    quiet(),
	})
	if res.Code != canopycover.CodeOK {
		t.Fatalf("result code = %d (%s), want 0", res.Code, res.Error)
	}
	if len(res.Files) != 1 || res.Files[0].Key != "csv" {
		t.Fatalf("unexpected result files: %+v", res.Files)
	}

	rows := readCSV(t, res.Files[0].Path)
	if len(rows) != 2 {
		t.Fatalf("got %d CSV rows, want header plus one", len(rows))
	}
	want := []string{"2018-05-01T13:25:10", "12.5", "Unknown", "plot1",
		"Green Canopy Cover Estimation from Field Scanner RGB images"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("row cell %d (%s) = %q, want %q", i, rows[0][i], rows[1][i], cell)
		}
	}

	ms, err := db.Measurements(1)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(ms) != 1 || ms[0].Plot != "plot1" || ms[0].Value != 12.5 {
		t.Errorf("unexpected archived measurements: %+v", ms)
	}
}

func TestRunGeostreams(t *testing.T) {
	dir := t.TempDir()
	geo := &tifftest.Geo{
		OriginX: 409000.0,
		OriginY: 3660000.0,
		ScaleX:  0.5,
		ScaleY:  0.5,
		EPSG:    32612,
	}
	img := writePlotImage(t, dir, "plot2", "scan.tif", 4, 4, 4, func(x, y int) [4]uint8 {
		return [4]uint8{0, 255, 0, 255}
	}, geo)

	md := []metadata.Record{{Plots: []metadata.Plot{{Name: "plot2", Species: "Sorghum"}}}}
	res := Run([]string{img}, Options{
		Schema:       traits.BETYdbSchema(),
		Metadata:     md,
		Timestamp:    "2018-05-01T13:25:10-07:00",
		WorkDir:      dir,
		Geostreams:   true,
		NoDataCutoff: 0.75,
		Logger:       quiet(),
	})
	if res.Code != canopycover.CodeOK {
		t.Fatalf("result code = %d (%s), want 0", res.Code, res.Error)
	}
	if len(res.Files) != 2 {
		t.Fatalf("unexpected result files: %+v", res.Files)
	}

	rows := readCSV(t, filepath.Join(dir, "canopycover.csv"))
	if len(rows) != 2 {
		t.Fatalf("got %d trait rows, want header plus one", len(rows))
	}
	want := []string{"2018-05-01T13:25:10", "100", "2", "Sorghum", "plot2",
		"Zongyang Li", "2018", "Maricopa Field Station Data and Metadata",
		"Green Canopy Cover Estimation from Field Scanner RGB images"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("trait cell %d (%s) = %q, want %q", i, rows[0][i], rows[1][i], cell)
		}
	}

	geoRows := readCSV(t, filepath.Join(dir, "canopycover_geostreams.csv"))
	if len(geoRows) != 2 {
		t.Fatalf("got %d geostreams rows, want header plus one", len(geoRows))
	}
	// image covers 409000-409002 and 3659998-3660000
	wantGeo := []string{"plot2", "Canopy Cover", "3659999", "409001",
		"2018-05-01T13:25:10", img, "100", "2018-05-01"}
	for i, cell := range wantGeo {
		if geoRows[1][i] != cell {
			t.Errorf("geostreams cell %d (%s) = %q, want %q", i, geoRows[0][i], geoRows[1][i], cell)
		}
	}
}

func TestRunCutoffSentinel(t *testing.T) {
	dir := t.TempDir()
	// every pixel nodata except one green corner
	img := writePlotImage(t, dir, "plot1", "scan.tif", 4, 4, 4, func(x, y int) [4]uint8 {
		if x == 0 && y == 0 {
			return [4]uint8{0, 255, 0, 255}
		}
		return [4]uint8{0, 0, 0, 0}
	}, nil)

	res := Run([]string{img}, Options{
		Schema:       traits.BasicSchema(),
		Timestamp:    "2018-05-01",
		WorkDir:      dir,
		NoDataCutoff: 0.75,
		Logger:       quiet(),
	})
	if res.Code != canopycover.CodeOK {
		t.Fatalf("result code = %d (%s), want 0", res.Code, res.Error)
	}

	rows := readCSV(t, filepath.Join(dir, "canopycover.csv"))
	if rows[1][1] != "-1" {
		t.Errorf("canopy_cover = %q, want the -1 sentinel", rows[1][1])
	}
}

func TestRunNoFiles(t *testing.T) {
	res := Run([]string{"scan.jpg", "notes.txt"}, Options{
		Schema:  traits.BasicSchema(),
		WorkDir: t.TempDir(),
		Logger:  quiet(),
	})
	if res.Code != canopycover.CodeNoFiles {
		t.Errorf("result code = %d, want %d", res.Code, canopycover.CodeNoFiles)
	}
	if res.Error == "" {
		t.Error("a failed run should carry an error message")
	}
}

func TestRunNoRecords(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.tif")
	if err := os.WriteFile(bad, []byte("not really a tiff"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	res := Run([]string{bad}, Options{
		Schema:  traits.BasicSchema(),
		WorkDir: dir,
		Logger:  quiet(),
	})
	if res.Code != canopycover.CodeNoRecords {
		t.Errorf("result code = %d, want %d", res.Code, canopycover.CodeNoRecords)
	}
}

func TestRunOutputs(t *testing.T) {
	dir := t.TempDir()
	green := func(x, y int) [4]uint8 { return [4]uint8{0, 255, 0, 255} }
	black := func(x, y int) [4]uint8 { return [4]uint8{0, 0, 0, 255} }
	img1 := writePlotImage(t, dir, "plot1", "1.tif", 4, 4, 4, green, nil)
	img2 := writePlotImage(t, dir, "plot2", "2.tif", 4, 4, 4, black, nil)

	res := Run([]string{img1, img2}, Options{
		Schema:    traits.BasicSchema(),
		Timestamp: "2018-05-01",
		WorkDir:   dir,
		Graph:     true,
		Report:    true,
		Logger:    quiet(),
	})
	if res.Code != canopycover.CodeOK {
		t.Fatalf("result code = %d (%s), want 0", res.Code, res.Error)
	}

	keys := make(map[string]string)
	for _, f := range res.Files {
		keys[f.Key] = f.Path
	}
	for _, key := range []string{"graph", "pdf"} {
		path, ok := keys[key]
		if !ok {
			t.Errorf("no %s in result files: %+v", key, res.Files)
			continue
		}
		fi, err := os.Stat(path)
		if err != nil {
			t.Errorf("stat %s output: %v", key, err)
			continue
		}
		if fi.Size() == 0 {
			t.Errorf("%s output %s is empty", key, path)
		}
	}
}
