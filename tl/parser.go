package tl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Parser reads TL values from a buffer. The first error is sticky: later
// fetches return zero values and leave the error untouched.
type Parser struct {
	data     []byte
	pos      int
	err      error
	registry *Registry
}

// NewParser creates a Parser over data resolving boxed objects with registry.
func NewParser(data []byte, registry *Registry) *Parser {
	if registry == nil {
		registry = DefaultRegistry
	}
	return &Parser{data: data, registry: registry}
}

// Err returns the first error seen.
func (p *Parser) Err() error { return p.err }

// Offset returns the number of bytes consumed.
func (p *Parser) Offset() int { return p.pos }

// Remaining returns the number of unread bytes.
func (p *Parser) Remaining() int { return len(p.data) - p.pos }

// SetError records err unless an earlier error exists.
func (p *Parser) SetError(err error, detail string) {
	if p.err != nil {
		return
	}
	p.err = &DecodeError{Offset: p.pos, Detail: detail, Err: err}
}

// FetchEnd fails unless the whole buffer was consumed.
func (p *Parser) FetchEnd() {
	if p.err == nil && p.pos != len(p.data) {
		p.SetError(ErrTrailingData, fmt.Sprintf("%d unread bytes", len(p.data)-p.pos))
	}
}

func (p *Parser) take(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n > p.Remaining() {
		p.SetError(ErrTruncated, fmt.Sprintf("need %d bytes, have %d", n, p.Remaining()))
		return nil
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b
}

// FetchInt32 reads a little-endian int32.
func (p *Parser) FetchInt32() int32 {
	b := p.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// FetchInt64 reads a little-endian int64.
func (p *Parser) FetchInt64() int64 {
	b := p.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

// FetchDouble reads an IEEE-754 double.
func (p *Parser) FetchDouble() float64 {
	b := p.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// FetchBool reads a boxed Bool.
func (p *Parser) FetchBool() bool {
	switch id := p.FetchInt32(); id {
	case BoolTrueID:
		return true
	case BoolFalseID:
		return false
	default:
		if p.err == nil {
			p.SetError(ErrInvalidBool, fmt.Sprintf("constructor %#08x", uint32(id)))
		}
		return false
	}
}

// FetchRaw reads n bytes of fixed-size data.
func (p *Parser) FetchRaw(n int) []byte {
	b := p.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// FetchBytes reads a length-prefixed, padded byte string.
func (p *Parser) FetchBytes() []byte {
	raw := p.fetchStringRaw()
	if raw == nil {
		return nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

// FetchString reads a length-prefixed, padded string.
func (p *Parser) FetchString() string {
	return string(p.fetchStringRaw())
}

func (p *Parser) fetchStringRaw() []byte {
	head := p.take(1)
	if head == nil {
		return nil
	}

	var n, headerSize int
	switch head[0] {
	case longStringMarker:
		b := p.take(3)
		if b == nil {
			return nil
		}
		n = int(b[0]) | int(b[1])<<8 | int(b[2])<<16
		headerSize = 4
	case hugeStringMarker:
		b := p.take(7)
		if b == nil {
			return nil
		}
		var tmp [8]byte
		copy(tmp[:], b)
		length := binary.LittleEndian.Uint64(tmp[:])
		if length > uint64(p.Remaining()) {
			p.SetError(ErrTooLarge, fmt.Sprintf("string of %d bytes", length))
			return nil
		}
		n = int(length)
		headerSize = 8
	default:
		n = int(head[0])
		headerSize = 1
	}

	data := p.take(n)
	if p.err != nil {
		return nil
	}

	padding := (4 - (headerSize+n)%4) % 4
	p.take(padding)
	if p.err != nil {
		return nil
	}
	if data == nil {
		return []byte{}
	}
	return data
}

// FetchVectorLength reads a vector element count and checks that at least
// minElemSize bytes per element remain.
func (p *Parser) FetchVectorLength(minElemSize int) int {
	n := p.FetchInt32()
	if p.err != nil {
		return 0
	}
	if n < 0 {
		p.SetError(ErrNegativeLength, fmt.Sprintf("vector of %d elements", n))
		return 0
	}
	if minElemSize > 0 && int64(n)*int64(minElemSize) > int64(p.Remaining()) {
		p.SetError(ErrTruncated, fmt.Sprintf("vector of %d elements", n))
		return 0
	}
	return int(n)
}

// FetchObject reads a boxed data object.
func (p *Parser) FetchObject() Object {
	return p.fetchBoxed(KindType)
}

// FetchFunction reads a boxed function object.
func (p *Parser) FetchFunction() Function {
	o := p.fetchBoxed(KindFunction)
	if o == nil {
		return nil
	}
	fn, ok := o.(Function)
	if !ok {
		p.SetError(ErrNotAFunction, o.TypeName())
		return nil
	}
	return fn
}

func (p *Parser) fetchBoxed(kind Kind) Object {
	start := p.pos
	id := p.FetchInt32()
	if p.err != nil {
		return nil
	}

	c, exists := p.registry.Lookup(id)
	if !exists {
		p.pos = start
		p.SetError(ErrUnknownConstructor, fmt.Sprintf("constructor %#08x", uint32(id)))
		return nil
	}
	if c.Kind != kind {
		p.pos = start
		if kind == KindFunction {
			p.SetError(ErrNotAFunction, c.Name)
		} else {
			p.SetError(ErrUnexpectedConstructor, fmt.Sprintf("%s is a function", c.Name))
		}
		return nil
	}

	o := c.New()
	o.Fetch(p)
	if p.err != nil {
		return nil
	}
	return o
}

// FetchAs reads a boxed object and checks its concrete type.
func FetchAs[T Object](p *Parser) T {
	var zero T
	o := p.FetchObject()
	if o == nil {
		return zero
	}
	v, ok := o.(T)
	if !ok {
		p.SetError(ErrUnexpectedConstructor, fmt.Sprintf("got %s, want %T", o.TypeName(), zero))
		return zero
	}
	return v
}
