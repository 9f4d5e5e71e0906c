// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
)

// csvFile is a CSV output opened once at the start of a run and
// closed once at the end, header first.
type csvFile struct {
	path string
	f    *os.File
	w    *csv.Writer
}

func newCSVFile(path string, header []string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header to %s: %w", path, err)
	}
	return &csvFile{path: path, f: f, w: w}, nil
}

func (c *csvFile) write(row []string) error {
	return c.w.Write(row)
}

// close flushes buffered rows and reports any write error that was
// held back by the csv writer.
func (c *csvFile) close() error {
	c.w.Flush()
	err := c.w.Error()
	if cerr := c.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}
	return nil
}
