// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

/*
The canopycover package calculates the canopy cover percentage, the
share of green, non-background pixels, of plot images taken by a field
scanner, and writes the results out as CSV trait records.

It is built to run as one transformer step inside a larger scanning
pipeline: the host hands it a list of candidate images, a run
timestamp, a working directory and the experiment metadata, and gets
back a structured result listing the output files.

The canopycover command is the entry point:

  canopycover -working_space out/ -metadata meta.yaml plot1/scan.tif

All options are described by its '-h' flag. Images can be taken from
the local filesystem or pulled from an S3 bucket with the '-c aws'
flag; the storage connections live in this package (LocalConn,
AwsConn) and are deliberately small so other backends can be swapped
in.

Outputs

canopycover.csv holds one trait row per processed image. When the
geostreams variant is selected, canopycover_geostreams.csv additionally
holds one geolocated observation per georeferenced image, using the
centroid of the image bounds. A cover graph (cover.png) and a PDF run
report can also be produced.

The per-image pixel work lives in the cover package, georeferencing
tag reading in geotiff, and the trait table handling in traits. The
run loop itself is in internal/pipeline.
*/
package canopycover
