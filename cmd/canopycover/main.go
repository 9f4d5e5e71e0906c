// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fieldscan.xyz/canopycover"
	"fieldscan.xyz/canopycover/internal/pipeline"
	"fieldscan.xyz/canopycover/internal/store"
	"fieldscan.xyz/canopycover/metadata"
	"fieldscan.xyz/canopycover/traits"
)

const usage = `Usage: canopycover [-v] [-c conn] [options] file|dir ...

Calculates the canopy cover percentage (the share of green, non
background pixels) of each .tif/.tiff image given, or found under the
directories given, and writes one trait row per image to
canopycover.csv in the working space. The containing directory of an
image names its plot.

With -geostreams the extended BETYdb trait schema is used, and a
second CSV of geolocated observations is written from the centroid of
each georeferenced image's bounds.

A result.json describing the outcome is always written to the working
space for the hosting pipeline to pick up; the process exits non-zero
when that result carries a negative code.

With '-c local' or '-c aws' the images are instead fetched from scan
storage (a directory on the local machine, or an S3 bucket; use
-prefix to select a scan), and all outputs are uploaded back next to
them.

`

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// Storer is the storage connection used to fetch scans and publish
// results when not working from the local filesystem.
type Storer interface {
	Init() error
	ListObjects(bucket string, prefix string) ([]string, error)
	Download(bucket string, key string, path string) error
	Upload(bucket string, key string, path string) error
	ScanStorageId() string
	Log(v ...interface{})
}

func main() {
	verbose := flag.Bool("v", false, "verbose")
	conntype := flag.String("c", "", "connection type: 'local' or 'aws'; leave empty to process the file arguments directly")
	prefix := flag.String("prefix", "", "storage prefix to download scans from (with -c)")
	workingSpace := flag.String("working_space", ".", "directory the outputs are written to")
	metadataPath := flag.String("metadata", "", "path to the experiment metadata (YAML or JSON)")
	timestamp := flag.String("timestamp", "", "timestamp to use in ISO 8601 format (eg: YYYY-MM-DDTHH:MM:SS); defaults to now")
	species := flag.String("species", "", "name of the species associated with the canopy cover")
	germplasm := flag.String("germplasm_name", "", "name of the germplasm associated with the canopy cover")
	citationAuthor := flag.String("citation_author", "", "author of citation to use when generating measurements")
	citationTitle := flag.String("citation_title", "", "title of the citation to use when generating measurements")
	citationYear := flag.String("citation_year", "", "year of citation to use when generating measurements")
	geostreams := flag.Bool("geostreams", false, "use the BETYdb trait schema and write geostreams rows")
	cutoff := flag.Float64("cutoff", -1, "nodata ratio above which an image yields the -1 sentinel; negative selects the variant default")
	graph := flag.Bool("graph", false, "render a canopy cover graph of the run")
	pdf := flag.Bool("pdf", false, "write a PDF run report")
	dbPath := flag.String("db", "", "path of a sqlite measurement archive to record the run in")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", log.LstdFlags)
	} else {
		var n NullWriter
		verboselog = log.New(n, "", 0)
	}

	if err := os.MkdirAll(*workingSpace, 0755); err != nil {
		log.Fatalln("Error creating working space:", err)
	}

	var conn Storer
	switch *conntype {
	case "":
		// images come straight from the arguments
	case "local":
		conn = &canopycover.LocalConn{Logger: verboselog}
	case "aws":
		conn = &canopycover.AwsConn{Logger: verboselog}
	default:
		log.Fatalln("Unknown connection type:", *conntype)
	}
	if conn != nil {
		if err := conn.Init(); err != nil {
			log.Fatalln("Error setting up connection:", err)
		}
	}

	var files []string
	var err error
	if conn != nil {
		files, err = fetchScans(conn, *prefix, *workingSpace)
	} else {
		files, err = gatherFiles(flag.Args())
	}
	if err != nil {
		log.Fatalln("Error finding images:", err)
	}

	var md []metadata.Record
	if *metadataPath != "" {
		md, err = metadata.Load(*metadataPath)
		if err != nil {
			log.Fatalln("Error loading metadata:", err)
		}
	}

	ts := *timestamp
	if ts == "" {
		ts = time.Now().Format(time.RFC3339)
	}

	opts := pipeline.Options{
		Overrides: traits.Overrides{
			Species:        *species,
			GermplasmName:  *germplasm,
			CitationAuthor: *citationAuthor,
			CitationTitle:  *citationTitle,
			CitationYear:   *citationYear,
		},
		Metadata:   md,
		Timestamp:  ts,
		WorkDir:    *workingSpace,
		Geostreams: *geostreams,
		Graph:      *graph,
		Report:     *pdf,
		Logger:     verboselog,
	}
	if *geostreams {
		opts.Schema = traits.BETYdbSchema()
		if *cutoff < 0 {
			opts.NoDataCutoff = 0.75
		}
	} else {
		opts.Schema = traits.BasicSchema()
		opts.SigDigits = 3
	}
	if *cutoff >= 0 {
		opts.NoDataCutoff = *cutoff
	}

	if *dbPath != "" {
		s, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalln("Error opening measurement archive:", err)
		}
		opts.Store = s
	}

	if err = pipeline.CheckContinue(files); err != nil {
		finish(canopycover.Result{Code: -1, Error: err.Error()}, *workingSpace, conn, *prefix)
	}

	res := pipeline.Run(files, opts)
	if opts.Store != nil {
		if err = opts.Store.Close(); err != nil {
			log.Println("Error closing measurement archive:", err)
		}
	}
	finish(res, *workingSpace, conn, *prefix)
}

// finish writes result.json, uploads the outputs if a storage
// connection is in use, and exits with the appropriate code.
func finish(res canopycover.Result, workingSpace string, conn Storer, prefix string) {
	resultPath := filepath.Join(workingSpace, "result.json")
	b, err := json.MarshalIndent(res, "", "    ")
	if err == nil {
		err = os.WriteFile(resultPath, b, 0644)
	}
	if err != nil {
		log.Println("Error writing result:", err)
	}

	if conn != nil {
		for _, f := range append(res.Files, canopycover.FileMeta{Path: resultPath, Key: "result"}) {
			key := filepath.Base(f.Path)
			if prefix != "" {
				key = strings.TrimSuffix(prefix, "/") + "/" + key
			}
			if err = conn.Upload(conn.ScanStorageId(), key, f.Path); err != nil {
				conn.Log("Error uploading", f.Path, ":", err)
			}
		}
	}

	if res.Code < 0 {
		if res.Error != "" {
			log.Println(res.Error)
		}
		os.Exit(1)
	}
	os.Exit(0)
}

// gatherFiles expands the command line arguments into a candidate
// file list, walking any directories. Filtering by extension is left
// to the run loop so unsupported files are reported there.
func gatherFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && !strings.HasPrefix(filepath.Base(path), ".") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// fetchScans downloads every object under prefix in the scan storage
// bucket into a scans/ directory inside the working space, recreating
// the plot directory layout.
func fetchScans(conn Storer, prefix string, workingSpace string) ([]string, error) {
	keys, err := conn.ListObjects(conn.ScanStorageId(), prefix)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(workingSpace, "scans")
	var files []string
	for _, key := range keys {
		fn := filepath.Join(dir, filepath.FromSlash(key))
		if err = os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
			return nil, err
		}
		conn.Log("Downloading", key)
		if err = conn.Download(conn.ScanStorageId(), key, fn); err != nil {
			return nil, err
		}
		files = append(files, fn)
	}
	return files, nil
}
