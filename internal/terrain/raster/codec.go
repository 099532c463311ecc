package raster

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/terrain-microservice/internal/terrain"
)

// Binary layout (little endian, zstd compressed as a whole):
//
//	magic "TGRD" | version u8 | width u32 | height u32 | transform 6xf64 |
//	nodata f64 | crs length u16 | crs bytes | samples f32 * width*height
var gridMagic = [4]byte{'T', 'G', 'R', 'D'}

const gridVersion uint8 = 1

type gridHeader struct {
	Magic     [4]byte
	Version   uint8
	Width     uint32
	Height    uint32
	Transform [6]float64
	NoData    float64
	CRSLen    uint16
}

// Encode writes g in the compressed binary format. Samples are stored as float32.
func Encode(w io.Writer, g *Grid) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	bw := bufio.NewWriter(enc)

	hdr := gridHeader{
		Magic:     gridMagic,
		Version:   gridVersion,
		Width:     uint32(g.width),
		Height:    uint32(g.height),
		Transform: g.transform,
		NoData:    g.noData,
		CRSLen:    uint16(len(g.crs)),
	}
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		enc.Close()
		return fmt.Errorf("write grid header: %w", err)
	}
	if _, err := bw.WriteString(g.crs); err != nil {
		enc.Close()
		return fmt.Errorf("write grid crs: %w", err)
	}

	var buf [4]byte
	for _, v := range g.data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		if _, err := bw.Write(buf[:]); err != nil {
			enc.Close()
			return fmt.Errorf("write grid samples: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("flush grid: %w", err)
	}
	return enc.Close()
}

// Decode reads a grid written by Encode.
func Decode(r io.Reader, maxCells int) (*Grid, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	var hdr gridHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, terrain.InputError("read grid header: %v", err)
	}
	if hdr.Magic != gridMagic {
		return nil, terrain.InputError("not a terrain grid blob")
	}
	if hdr.Version != gridVersion {
		return nil, terrain.InputError("unsupported grid version %d", hdr.Version)
	}
	n := int(hdr.Width) * int(hdr.Height)
	if n == 0 || (maxCells > 0 && n > maxCells) {
		return nil, terrain.InputError("grid of %dx%d cells rejected", hdr.Width, hdr.Height)
	}

	crs := make([]byte, hdr.CRSLen)
	if _, err := io.ReadFull(br, crs); err != nil {
		return nil, terrain.InputError("read grid crs: %v", err)
	}

	data := make([]float64, n)
	var buf [4]byte
	for i := range data {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, terrain.InputError("read grid samples: %v", err)
		}
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[:])))
	}
	return wrap(int(hdr.Width), int(hdr.Height), data, GeoTransform(hdr.Transform), string(crs), hdr.NoData)
}

// Marshal encodes g into a byte slice.
func Marshal(g *Grid) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a grid from b.
func Unmarshal(b []byte, maxCells int) (*Grid, error) {
	return Decode(bytes.NewReader(b), maxCells)
}
