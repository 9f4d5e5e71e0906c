// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package geotiff reads the georeferencing tags of a TIFF file.
// The standard tiff decoder has no access to private tags, so this
// package walks the image file directory itself, reading just enough
// to recover the image bounds and coordinate system; raster
// reprojection and clipping stay with the GDAL toolkit.
package geotiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/geo/s2"
)

const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagModelPixelScale  = 33550
	tagModelTiepoint    = 33922
	tagGeoKeyDirectory  = 34735
	keyModelType        = 1024
	keyGeographicType   = 2048
	keyProjectedCSType  = 3072
	geoKeyUserDefined   = 32767

	modelTypeProjected  = 1
	modelTypeGeographic = 2
)

const (
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

// Bounds is the georeferenced extent of an image in its native
// coordinate reference system.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64

	// EPSG is the coordinate system code, 0 if none was declared.
	EPSG int
	// Geographic is set when the coordinate system is a geographic
	// (latitude/longitude) one rather than a projected one.
	Geographic bool
}

// Centroid returns the centre of the bounds in native coordinates.
func (b *Bounds) Centroid() (x, y float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// CentroidLatLng returns the centre of the bounds as a latitude and
// longitude pair. For geographic coordinate systems the midpoint is
// interpolated on the sphere; otherwise the native centre is returned
// with Y as latitude and X as longitude, matching the column order of
// the geostreams output.
func (b *Bounds) CentroidLatLng() (lat, lon float64) {
	if b.Geographic {
		p1 := s2.PointFromLatLng(s2.LatLngFromDegrees(b.MinY, b.MinX))
		p2 := s2.PointFromLatLng(s2.LatLngFromDegrees(b.MaxY, b.MaxX))
		mid := s2.LatLngFromPoint(s2.Interpolate(0.5, p1, p2))
		return mid.Lat.Degrees(), mid.Lng.Degrees()
	}
	x, y := b.Centroid()
	return y, x
}

type ifdEntry struct {
	typ    uint16
	count  uint32
	raw    [4]byte
	order  binary.ByteOrder
	reader io.ReaderAt
}

// ReadBounds returns the georeferenced bounds of a TIFF image, or nil
// if the image carries no georeferencing tags. An error is returned
// only when the file cannot be read or is not a TIFF at all.
func ReadBounds(path string) (*Bounds, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readBounds(f)
}

func readBounds(r io.ReaderAt) (*Bounds, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("reading tiff header: %w", err)
	}

	var order binary.ByteOrder
	switch string(hdr[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, errors.New("not a tiff file")
	}
	if order.Uint16(hdr[2:4]) != 42 {
		return nil, errors.New("not a tiff file")
	}

	ifdOffset := int64(order.Uint32(hdr[4:8]))
	entries, err := readIFD(r, order, ifdOffset)
	if err != nil {
		return nil, err
	}

	scale, okScale := entries[tagModelPixelScale]
	tiepoint, okTie := entries[tagModelTiepoint]
	if !okScale || !okTie {
		return nil, nil
	}

	scales, err := scale.doubles()
	if err != nil {
		return nil, err
	}
	ties, err := tiepoint.doubles()
	if err != nil {
		return nil, err
	}
	if len(scales) < 2 || len(ties) < 5 {
		return nil, errors.New("malformed georeferencing tags")
	}

	width, err := entries[tagImageWidth].integer()
	if err != nil {
		return nil, err
	}
	height, err := entries[tagImageLength].integer()
	if err != nil {
		return nil, err
	}

	// The tiepoint maps raster position (i,j) to model position
	// (x,y); almost always i and j are zero but the general form is
	// handled anyway.
	originX := ties[3] - ties[0]*scales[0]
	originY := ties[4] + ties[1]*scales[1]

	b := &Bounds{
		MinX: originX,
		MaxX: originX + float64(width)*scales[0],
		MaxY: originY,
		MinY: originY - float64(height)*scales[1],
	}
	if math.IsNaN(b.MinX) || math.IsNaN(b.MinY) {
		return nil, errors.New("malformed georeferencing tags")
	}

	if geokeys, ok := entries[tagGeoKeyDirectory]; ok {
		b.EPSG, b.Geographic = parseGeoKeys(geokeys)
	}

	return b, nil
}

func readIFD(r io.ReaderAt, order binary.ByteOrder, offset int64) (map[uint16]ifdEntry, error) {
	var countBuf [2]byte
	if _, err := r.ReadAt(countBuf[:], offset); err != nil {
		return nil, fmt.Errorf("reading ifd: %w", err)
	}
	n := int(order.Uint16(countBuf[:]))

	buf := make([]byte, n*12)
	if _, err := r.ReadAt(buf, offset+2); err != nil {
		return nil, fmt.Errorf("reading ifd entries: %w", err)
	}

	entries := make(map[uint16]ifdEntry, n)
	for i := 0; i < n; i++ {
		e := buf[i*12 : (i+1)*12]
		entry := ifdEntry{
			typ:    order.Uint16(e[2:4]),
			count:  order.Uint32(e[4:8]),
			order:  order,
			reader: r,
		}
		copy(entry.raw[:], e[8:12])
		entries[order.Uint16(e[0:2])] = entry
	}
	return entries, nil
}

// size in bytes of a single value of the entry's type
func (e ifdEntry) valueSize() int {
	switch e.typ {
	case typeShort:
		return 2
	case typeLong:
		return 4
	case typeDouble:
		return 8
	}
	return 0
}

// data returns the entry's raw value bytes, following the offset
// indirection when the value doesn't fit in the entry itself.
func (e ifdEntry) data() ([]byte, error) {
	size := e.valueSize()
	if size == 0 {
		return nil, fmt.Errorf("unsupported tag type %d", e.typ)
	}
	total := size * int(e.count)
	if total <= 4 {
		return e.raw[:total], nil
	}
	buf := make([]byte, total)
	offset := int64(e.order.Uint32(e.raw[:]))
	if _, err := e.reader.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("reading tag value: %w", err)
	}
	return buf, nil
}

func (e ifdEntry) integer() (int, error) {
	b, err := e.data()
	if err != nil {
		return 0, err
	}
	switch e.typ {
	case typeShort:
		return int(e.order.Uint16(b)), nil
	case typeLong:
		return int(e.order.Uint32(b)), nil
	}
	return 0, fmt.Errorf("tag type %d is not an integer", e.typ)
}

func (e ifdEntry) doubles() ([]float64, error) {
	if e.typ != typeDouble {
		return nil, fmt.Errorf("tag type %d is not a double", e.typ)
	}
	b, err := e.data()
	if err != nil {
		return nil, err
	}
	vals := make([]float64, e.count)
	for i := range vals {
		vals[i] = math.Float64frombits(e.order.Uint64(b[i*8:]))
	}
	return vals, nil
}

func (e ifdEntry) shorts() ([]uint16, error) {
	if e.typ != typeShort {
		return nil, fmt.Errorf("tag type %d is not a short", e.typ)
	}
	b, err := e.data()
	if err != nil {
		return nil, err
	}
	vals := make([]uint16, e.count)
	for i := range vals {
		vals[i] = e.order.Uint16(b[i*2:])
	}
	return vals, nil
}

// parseGeoKeys extracts the coordinate system from a GeoKeyDirectory
// tag. The model type key decides between projected and geographic;
// the matching coordinate system key supplies the EPSG code.
func parseGeoKeys(e ifdEntry) (epsg int, geographic bool) {
	keys, err := e.shorts()
	if err != nil || len(keys) < 4 {
		return 0, false
	}
	var geoCode, projCode int
	numKeys := int(keys[3])
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(keys) {
			break
		}
		id, loc, value := keys[base], keys[base+1], keys[base+3]
		if loc != 0 || value == geoKeyUserDefined {
			continue
		}
		switch id {
		case keyModelType:
			geographic = value == modelTypeGeographic
		case keyGeographicType:
			geoCode = int(value)
		case keyProjectedCSType:
			projCode = int(value)
		}
	}
	if geographic {
		return geoCode, true
	}
	if projCode != 0 {
		return projCode, false
	}
	return geoCode, false
}
