// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package tifftest writes small TIFF files by hand for tests. The
// standard tiff encoder can produce neither 3-sample RGB images nor
// GeoTIFF tags, both of which the loader and bounds reader need to be
// tested against.
package tifftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Geo describes the georeferencing tags to attach to a test image.
type Geo struct {
	OriginX, OriginY float64
	ScaleX, ScaleY   float64
	EPSG             uint16
	Geographic       bool
}

type entry struct {
	tag, typ uint16
	count    uint32
	value    []byte
}

const (
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

func shortVal(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func longVal(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func doubleVals(vs ...float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

func shortVals(vs ...uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return b
}

// WriteTIFF writes an uncompressed 8-bit little-endian TIFF with 3
// (RGB) or 4 (RGBA) samples per pixel. px supplies RGBA values per
// pixel; the alpha byte is dropped for 3-sample images. geo may be nil
// for a plain, non-georeferenced image.
func WriteTIFF(path string, w, h, samples int, px func(x, y int) [4]uint8, geo *Geo) error {
	if samples != 3 && samples != 4 {
		return fmt.Errorf("unsupported sample count %d", samples)
	}

	pix := make([]byte, w*h*samples)
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := px(x, y)
			copy(pix[i:], p[:samples])
			i += samples
		}
	}

	bits := make([]uint16, samples)
	for i := range bits {
		bits[i] = 8
	}

	entries := []entry{
		{256, typeLong, 1, longVal(uint32(w))},
		{257, typeLong, 1, longVal(uint32(h))},
		{258, typeShort, uint32(samples), shortVals(bits...)},
		{259, typeShort, 1, shortVal(1)},
		{262, typeShort, 1, shortVal(2)},
		{273, typeLong, 1, longVal(8)},
		{277, typeShort, 1, shortVal(uint16(samples))},
		{278, typeLong, 1, longVal(uint32(h))},
		{279, typeLong, 1, longVal(uint32(len(pix)))},
	}
	if samples == 4 {
		// unassociated alpha
		entries = append(entries, entry{338, typeShort, 1, shortVal(2)})
	}
	if geo != nil {
		entries = append(entries,
			entry{33550, typeDouble, 3, doubleVals(geo.ScaleX, geo.ScaleY, 0)},
			entry{33922, typeDouble, 6, doubleVals(0, 0, 0, geo.OriginX, geo.OriginY, 0)})
		modelType := uint16(1)
		csKey := uint16(3072)
		if geo.Geographic {
			modelType = 2
			csKey = 2048
		}
		keys := []uint16{1, 1, 0, 2,
			1024, 0, 1, modelType,
			csKey, 0, 1, geo.EPSG}
		entries = append(entries, entry{34735, typeShort, uint32(len(keys)), shortVals(keys...)})
	}

	ifdOffset := 8 + len(pix)
	if ifdOffset%2 != 0 {
		ifdOffset++
	}
	extOffset := ifdOffset + 2 + len(entries)*12 + 4

	var ifd, ext bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&ifd, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&ifd, le, e.tag)
		binary.Write(&ifd, le, e.typ)
		binary.Write(&ifd, le, e.count)
		if len(e.value) <= 4 {
			v := [4]byte{}
			copy(v[:], e.value)
			ifd.Write(v[:])
		} else {
			binary.Write(&ifd, le, uint32(extOffset+ext.Len()))
			ext.Write(e.value)
		}
	}
	binary.Write(&ifd, le, uint32(0)) // no next IFD

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, uint32(ifdOffset))
	buf.Write(pix)
	for buf.Len() < ifdOffset {
		buf.WriteByte(0)
	}
	buf.Write(ifd.Bytes())
	buf.Write(ext.Bytes())

	return os.WriteFile(path, buf.Bytes(), 0644)
}
