// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package canopycover

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
)

const maxticks = 40
const yticknum = 20

type graphPoint struct {
	Seq, Value float64
	Plot       string
}

// Graph renders a graph of the canopy cover of each image in a run.
// Images are ordered by any numeric prefix in their file name, so
// sequentially numbered scans graph in capture order.
func Graph(ms []Measurement, title string, w io.Writer) error {
	if len(ms) < 2 {
		return errors.New("Not enough measurements to graph")
	}

	var points []graphPoint
	for _, m := range ms {
		name := filepath.Base(m.Source)
		var numend int
		numend = strings.Index(name, "_")
		if numend == -1 {
			numend = strings.Index(name, ".")
		}
		if numend == -1 {
			continue
		}
		seq, err := strconv.ParseFloat(name[0:numend], 64)
		if err != nil {
			continue
		}
		points = append(points, graphPoint{Seq: seq, Value: m.Value, Plot: m.Plot})
	}

	// If no file names carried a sequence number, just use the
	// order the measurements were taken in
	if len(points) == 0 {
		for i, m := range ms {
			points = append(points, graphPoint{Seq: float64(i + 1), Value: m.Value, Plot: m.Plot})
		}
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Seq < points[j].Seq })

	var xvalues, yvalues []float64
	var ticks []chart.Tick
	var yticks []chart.Tick
	tickevery := len(points) / maxticks
	if tickevery < 1 {
		tickevery = 1
	}
	for i, p := range points {
		xvalues = append(xvalues, p.Seq)
		yvalues = append(yvalues, p.Value)
		if i%tickevery == 0 {
			ticks = append(ticks, chart.Tick{Value: p.Seq, Label: fmt.Sprintf("%.0f", p.Seq)})
		}
	}
	final := points[len(points)-1]
	ticks[len(ticks)-1] = chart.Tick{Value: final.Seq, Label: fmt.Sprintf("%.0f", final.Seq)}
	for i := 0; i <= yticknum; i++ {
		n := float64(i*100) / yticknum
		yticks = append(yticks, chart.Tick{Value: n, Label: fmt.Sprintf("%.0f", n)})
	}

	mainSeries := chart.ContinuousSeries{
		Style: chart.Style{
			StrokeColor: chart.ColorGreen,
			FillColor:   chart.ColorAlternateGreen,
		},
		XValues: xvalues,
		YValues: yvalues,
	}

	// Annotate each point with its plot name
	var annotations []chart.Value2
	for _, p := range points {
		annotations = append(annotations, chart.Value2{Label: p.Plot, XValue: p.Seq, YValue: p.Value})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  3840,
		Height: 2160,
		XAxis: chart.XAxis{
			Name: "Image",
			Range: &chart.ContinuousRange{
				Min: 0.0,
			},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Canopy cover (%)",
			Range: &chart.ContinuousRange{
				Min: 0.0,
				Max: 100.0,
			},
			Ticks: yticks,
		},
		Series: []chart.Series{
			mainSeries,
			chart.AnnotationSeries{
				Annotations: annotations,
			},
		},
	}
	return graph.Render(chart.PNG, w)
}
