package docio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
)

// Limits on decoded lengths so that a corrupt header cannot request a
// huge allocation.
const (
	maxString = 1 << 20
	maxBlob   = 64 << 20
	maxCount  = 1 << 24
)

// encoder writes fixed-width little-endian values and keeps the first
// error.
type encoder struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: bufio.NewWriter(w)}
}

func (e *encoder) write(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) u8(v uint8) {
	e.buf[0] = v
	e.write(e.buf[:1])
}

func (e *encoder) u16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *encoder) i32(v int) { e.u32(uint32(int32(v))) }

func (e *encoder) f64(v float64) {
	binary.LittleEndian.PutUint64(e.buf[:8], math.Float64bits(v))
	e.write(e.buf[:8])
}

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	if e.err == nil {
		_, e.err = e.w.WriteString(s)
	}
}

func (e *encoder) blob(b []byte) {
	e.u32(uint32(len(b)))
	e.write(b)
}

func (e *encoder) count(n int) { e.u32(uint32(n)) }

func (e *encoder) point(p geom.Point) {
	e.f64(p.X)
	e.f64(p.Y)
}

func (e *encoder) rect(r geom.Rect) {
	e.f64(r.X)
	e.f64(r.Y)
	e.f64(r.W)
	e.f64(r.H)
}

func (e *encoder) line(l geom.Line) {
	e.point(l.A)
	e.point(l.B)
}

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// decoder mirrors encoder. After the first error every read returns a
// zero value.
type decoder struct {
	r   *bufio.Reader
	buf [8]byte
	err error
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: bufio.NewReader(r)}
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = errors.New(errors.ErrCodeInvalidFormat, format, args...)
	}
}

func (d *decoder) read(b []byte) bool {
	if d.err != nil {
		return false
	}
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = errors.Wrap(errors.ErrCodeInvalidFormat, err, "truncated document")
		return false
	}
	return true
}

func (d *decoder) u8() uint8 {
	if !d.read(d.buf[:1]) {
		return 0
	}
	return d.buf[0]
}

func (d *decoder) u16() uint16 {
	if !d.read(d.buf[:2]) {
		return 0
	}
	return binary.LittleEndian.Uint16(d.buf[:2])
}

func (d *decoder) u32() uint32 {
	if !d.read(d.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *decoder) i32() int { return int(int32(d.u32())) }

func (d *decoder) f64() float64 {
	if !d.read(d.buf[:8]) {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(d.buf[:8]))
}

func (d *decoder) bool() bool {
	switch d.u8() {
	case 0:
		return false
	case 1:
		return true
	}
	d.fail("bad boolean")
	return false
}

func (d *decoder) bytes(limit int) []byte {
	n := int(d.u32())
	if d.err != nil {
		return nil
	}
	if n > limit {
		d.fail("length %d exceeds %d", n, limit)
		return nil
	}
	b := make([]byte, n)
	d.read(b)
	return b
}

func (d *decoder) str() string { return string(d.bytes(maxString)) }

func (d *decoder) blob() []byte {
	b := d.bytes(maxBlob)
	if len(b) == 0 {
		return nil
	}
	return b
}

func (d *decoder) count() int {
	n := int(d.u32())
	if n > maxCount {
		d.fail("count %d exceeds %d", n, maxCount)
		return 0
	}
	return n
}

// index reads a table reference; -1 is allowed when optional is set.
func (d *decoder) index(n int, optional bool, what string) int {
	i := d.i32()
	if d.err != nil {
		return -1
	}
	if i == -1 && optional {
		return -1
	}
	if i < 0 || i >= n {
		d.fail("%s index %d out of range [0,%d)", what, i, n)
		return -1
	}
	return i
}

func (d *decoder) point() geom.Point {
	return geom.Point{X: d.f64(), Y: d.f64()}
}

func (d *decoder) rect() geom.Rect {
	return geom.Rect{X: d.f64(), Y: d.f64(), W: d.f64(), H: d.f64()}
}

func (d *decoder) line() geom.Line {
	return geom.Line{A: d.point(), B: d.point()}
}
