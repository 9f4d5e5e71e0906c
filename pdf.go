// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package canopycover

import (
	"fmt"

	"github.com/nickjwhite/gofpdf"
)

const reportMargin = 36 // pt
const rowHeight = 16    // pt

// Report builds a PDF summary of a transformer run, one line per
// measurement.
type Report struct {
	fpdf *gofpdf.Fpdf
}

// Setup creates a new PDF with appropriate settings and fonts
func (r *Report) Setup() error {
	r.fpdf = gofpdf.New("P", "pt", "A4", "")
	r.fpdf.SetFont("Helvetica", "", 10)
	r.fpdf.SetMargins(reportMargin, reportMargin, reportMargin)
	r.fpdf.SetAutoPageBreak(true, reportMargin)
	return r.fpdf.Error()
}

// AddRun adds a page summarising a run: the title, the run time, and
// a table of plot, cover value and source image.
func (r *Report) AddRun(title string, localtime string, ms []Measurement) error {
	r.fpdf.AddPage()

	r.fpdf.SetFont("Helvetica", "B", 14)
	r.fpdf.CellFormat(0, rowHeight*2, title, "", 1, "L", false, 0, "")
	r.fpdf.SetFont("Helvetica", "", 10)
	if localtime != "" {
		r.fpdf.CellFormat(0, rowHeight, "Run time: "+localtime, "", 1, "L", false, 0, "")
	}
	r.fpdf.Ln(rowHeight / 2)

	r.fpdf.SetFont("Helvetica", "B", 10)
	r.fpdf.CellFormat(140, rowHeight, "Plot", "B", 0, "L", false, 0, "")
	r.fpdf.CellFormat(90, rowHeight, "Canopy cover (%)", "B", 0, "R", false, 0, "")
	r.fpdf.CellFormat(0, rowHeight, "Source", "B", 1, "L", false, 0, "")
	r.fpdf.SetFont("Helvetica", "", 10)

	for _, m := range ms {
		r.fpdf.CellFormat(140, rowHeight, m.Plot, "", 0, "L", false, 0, "")
		r.fpdf.CellFormat(90, rowHeight, fmt.Sprintf("%.2f", m.Value), "", 0, "R", false, 0, "")
		r.fpdf.CellFormat(0, rowHeight, m.Source, "", 1, "L", false, 0, "")
	}

	return r.fpdf.Error()
}

// Save saves the PDF to the file at path
func (r *Report) Save(path string) error {
	return r.fpdf.OutputFileAndClose(path)
}
