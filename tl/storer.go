package tl

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// Constructor ids of the built-in Bool type.
const (
	BoolTrueID  int32 = -1720552011 // boolTrue = Bool
	BoolFalseID int32 = -1132882121 // boolFalse = Bool
)

// Storer receives the fields of an object. The same Store method is run once
// against a LengthCalculator and once against the real output buffer, so
// implementations must write the same sequence both times.
type Storer interface {
	StoreInt32(v int32)
	StoreInt64(v int64)
	StoreDouble(v float64)
	StoreBool(v bool)
	StoreBytes(v []byte)
	StoreString(v string)

	// StoreRaw writes fixed-size data (int128, int256) without a length.
	StoreRaw(v []byte)

	// StoreObject writes a boxed object: constructor id, then fields.
	StoreObject(o Object)
}

// LengthCalculator is a Storer that only counts bytes.
type LengthCalculator struct {
	n int
}

// Len returns the number of bytes counted so far.
func (c *LengthCalculator) Len() int { return c.n }

func (c *LengthCalculator) StoreInt32(int32)     { c.n += 4 }
func (c *LengthCalculator) StoreInt64(int64)     { c.n += 8 }
func (c *LengthCalculator) StoreDouble(float64)  { c.n += 8 }
func (c *LengthCalculator) StoreBool(bool)       { c.n += 4 }
func (c *LengthCalculator) StoreRaw(v []byte)    { c.n += len(v) }
func (c *LengthCalculator) StoreBytes(v []byte)  { c.n += stringSize(len(v)) }
func (c *LengthCalculator) StoreString(v string) { c.n += stringSize(len(v)) }

func (c *LengthCalculator) StoreObject(o Object) {
	mustNotBeNil(o)
	c.n += 4
	o.Store(c)
}

// bufferWriter writes into a buffer sized by a LengthCalculator. The buffer
// may come from foreign memory, so padding is written explicitly.
type bufferWriter struct {
	buf []byte
	pos int
}

func (w *bufferWriter) StoreInt32(v int32) {
	binary.LittleEndian.PutUint32(w.buf[w.pos:], uint32(v))
	w.pos += 4
}

func (w *bufferWriter) StoreInt64(v int64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], uint64(v))
	w.pos += 8
}

func (w *bufferWriter) StoreDouble(v float64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], math.Float64bits(v))
	w.pos += 8
}

func (w *bufferWriter) StoreBool(v bool) {
	if v {
		w.StoreInt32(BoolTrueID)
	} else {
		w.StoreInt32(BoolFalseID)
	}
}

func (w *bufferWriter) StoreRaw(v []byte) {
	w.pos += copy(w.buf[w.pos:], v)
}

func (w *bufferWriter) StoreBytes(v []byte) {
	w.storeLength(len(v))
	w.pos += copy(w.buf[w.pos:], v)
	w.pad(len(v))
}

func (w *bufferWriter) StoreString(v string) {
	w.storeLength(len(v))
	w.pos += copy(w.buf[w.pos:], v)
	w.pad(len(v))
}

func (w *bufferWriter) StoreObject(o Object) {
	mustNotBeNil(o)
	w.StoreInt32(o.ID())
	o.Store(w)
}

func (w *bufferWriter) storeLength(n int) {
	switch {
	case n < shortStringLimit:
		w.buf[w.pos] = byte(n)
		w.pos++
	case n < longStringLimit:
		w.buf[w.pos] = longStringMarker
		w.buf[w.pos+1] = byte(n)
		w.buf[w.pos+2] = byte(n >> 8)
		w.buf[w.pos+3] = byte(n >> 16)
		w.pos += 4
	default:
		w.buf[w.pos] = hugeStringMarker
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(n))
		copy(w.buf[w.pos+1:w.pos+8], tmp[:7])
		w.pos += 8
	}
}

// pad zero-fills up to the next multiple of 4 over the whole field.
func (w *bufferWriter) pad(n int) {
	for i := stringHeaderSize(n) + n; i%4 != 0; i++ {
		w.buf[w.pos] = 0
		w.pos++
	}
}

const (
	shortStringLimit = 254
	longStringLimit  = 1 << 24
	longStringMarker = 254
	hugeStringMarker = 255
)

func stringHeaderSize(n int) int {
	switch {
	case n < shortStringLimit:
		return 1
	case n < longStringLimit:
		return 4
	default:
		return 8
	}
}

// stringSize is the encoded size of a string or bytes field including padding.
func stringSize(n int) int {
	total := stringHeaderSize(n) + n
	return (total + 3) &^ 3
}

func mustNotBeNil(o Object) {
	if o == nil {
		panic("tl: cannot store nil object")
	}
	if v := reflect.ValueOf(o); v.Kind() == reflect.Pointer && v.IsNil() {
		panic(fmt.Sprintf("tl: cannot store nil %T", o))
	}
}
