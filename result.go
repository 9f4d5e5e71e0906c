// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package canopycover

// Result codes handed back to the hosting pipeline.
const (
	CodeOK        = 0
	CodeNoFiles   = -1000
	CodeNoRecords = -1001
)

// FileMeta describes one output file of a run.
type FileMeta struct {
	Path string `json:"path"`
	Key  string `json:"key"`
}

// Result is the structured outcome of a transformer run, serialized
// to result.json in the working directory for the host to pick up.
type Result struct {
	Code  int        `json:"code"`
	Files []FileMeta `json:"files,omitempty"`
	Error string     `json:"error,omitempty"`
}

// Measurement is a single computed canopy cover value, kept for the
// run summary outputs (graph, PDF report, measurement archive).
type Measurement struct {
	Plot    string
	Species string
	Source  string
	Value   float64
	Time    string
}
