// Package packing reads and writes packing files: headerless streams of
// fixed-size records (x, y, z, diameter), each field a float in a
// configurable byte order and width.
//
// Formats are written the way the packing generators name them, as a byte
// order prefix and a type letter:
//
//	<d  little-endian float64
//	>f  big-endian float32
//	=d  native byte order float64
//	!f  network (big-endian) float32
//
// A missing prefix means native byte order.
package packing

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/matzehuels/packmesh/pkg/errors"
)

// Fields is the number of scalar fields in one record.
const Fields = 4

// Format is the numeric encoding of the record fields.
type Format struct {
	Order binary.ByteOrder
	Width int // 4 or 8 bytes

	spec string
}

// ParseFormat parses a format string such as "<d".
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return Format{}, errors.New(errors.ErrCodeConfiguration, "packing format is empty")
	}
	f := Format{Order: binary.NativeEndian, spec: s}
	typ := s
	switch s[0] {
	case '<':
		f.Order, typ = binary.LittleEndian, s[1:]
	case '>', '!':
		f.Order, typ = binary.BigEndian, s[1:]
	case '=', '@':
		typ = s[1:]
	}
	switch typ {
	case "d":
		f.Width = 8
	case "f":
		f.Width = 4
	default:
		return Format{}, errors.New(errors.ErrCodeConfiguration,
			"packing format %q: want an optional byte order in <>=!@ followed by d or f", s)
	}
	return f, nil
}

// MustParseFormat is ParseFormat for constant formats.
func MustParseFormat(s string) Format {
	f, err := ParseFormat(s)
	if err != nil {
		panic(err)
	}
	return f
}

// String returns the format string the format was parsed from.
func (f Format) String() string { return f.spec }

// RecordSize returns the size of one record in bytes.
func (f Format) RecordSize() int { return Fields * f.Width }

// Record is one bead as stored on disk.
type Record struct {
	X, Y, Z, D float64
}

// Decode reads records until EOF. A trailing partial record is an error.
func Decode(r io.Reader, f Format) ([]Record, error) {
	buf := make([]byte, f.RecordSize())
	var out []Record
	br := bufio.NewReader(r)
	for {
		n, err := io.ReadFull(br, buf)
		if err == io.EOF {
			return out, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, errors.New(errors.ErrCodeIO,
				"packing ends with a partial record: %d of %d bytes after %d records", n, len(buf), len(out))
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "read packing record %d", len(out))
		}
		var v [Fields]float64
		for i := range v {
			v[i] = f.get(buf[i*f.Width:])
		}
		out = append(out, Record{X: v[0], Y: v[1], Z: v[2], D: v[3]})
	}
}

// Encode writes recs in format f.
func Encode(w io.Writer, f Format, recs []Record) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, f.RecordSize())
	for i, rec := range recs {
		for j, v := range [Fields]float64{rec.X, rec.Y, rec.Z, rec.D} {
			f.put(buf[j*f.Width:], v)
		}
		if _, err := bw.Write(buf); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write packing record %d", i)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "flush packing")
	}
	return nil
}

func (f Format) get(b []byte) float64 {
	if f.Width == 4 {
		return float64(math.Float32frombits(f.Order.Uint32(b)))
	}
	return math.Float64frombits(f.Order.Uint64(b))
}

func (f Format) put(b []byte, v float64) {
	if f.Width == 4 {
		f.Order.PutUint32(b, math.Float32bits(float32(v)))
		return
	}
	f.Order.PutUint64(b, math.Float64bits(v))
}

// ReadFile decodes the packing file at path.
func ReadFile(path string, f Format) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open packing %s", path)
	}
	defer file.Close()
	recs, err := Decode(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// WriteFile encodes recs to path, creating parent directories.
func WriteFile(path string, f Format, recs []Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create %s", dir)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create packing %s", path)
	}
	if err := Encode(file, f, recs); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close packing %s", path)
	}
	return nil
}
