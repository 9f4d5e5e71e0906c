// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package canopycover

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalConn(t *testing.T) {
	conn := &LocalConn{
		TempDir: filepath.Join(t.TempDir(), "storage"),
		Logger:  log.New(io.Discard, "", 0),
	}
	if err := conn.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	src := filepath.Join(t.TempDir(), "scan.tif")
	if err := os.WriteFile(src, []byte("image bytes"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	bucket := conn.ScanStorageId()
	if err := conn.Upload(bucket, "2018-05-01/plot1/scan.tif", src); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	names, err := conn.ListObjects(bucket, "2018-05-01")
	if err != nil {
		t.Fatalf("ListObjects failed: %v", err)
	}
	want := filepath.Join("2018-05-01", "plot1", "scan.tif")
	if len(names) != 1 || names[0] != want {
		t.Errorf("ListObjects = %v, want [%s]", names, want)
	}

	names, err = conn.ListObjects(bucket, "2018-06")
	if err != nil {
		t.Fatalf("ListObjects failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListObjects with unmatched prefix = %v, want none", names)
	}

	dst := filepath.Join(t.TempDir(), "downloaded.tif")
	if err := conn.Download(bucket, "2018-05-01/plot1/scan.tif", dst); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(b) != "image bytes" {
		t.Errorf("downloaded content = %q", b)
	}
}

func TestGraph(t *testing.T) {
	ms := []Measurement{
		{Plot: "plot1", Source: "plot1/1.tif", Value: 83.2},
		{Plot: "plot2", Source: "plot2/2.tif", Value: 12.5},
		{Plot: "plot3", Source: "plot3/3.tif", Value: 47.0},
	}

	var buf bytes.Buffer
	if err := Graph(ms, "Canopy cover 2018-05-01", &buf); err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("Graph output is not a PNG")
	}

	if err := Graph(ms[:1], "Canopy cover", io.Discard); err == nil {
		t.Error("Graph with a single measurement should fail")
	}
}

func TestReport(t *testing.T) {
	ms := []Measurement{
		{Plot: "plot1", Source: "plot1/1.tif", Value: 83.2},
		{Plot: "plot2", Source: "plot2/2.tif", Value: 12.5},
	}

	var r Report
	if err := r.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := r.AddRun("Canopy cover", "2018-05-01T13:25:10", ms); err != nil {
		t.Fatalf("AddRun failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := r.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Error("report is not a PDF")
	}
}
