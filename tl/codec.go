package tl

import "fmt"

// AllocFunc returns a buffer of exactly size bytes. It must not fail; an
// allocator that cannot satisfy the request panics.
type AllocFunc func(size int) []byte

// Size returns the exact encoded size of o including its constructor id.
func Size(o Object) int {
	var calc LengthCalculator
	calc.StoreObject(o)
	return calc.Len()
}

// Encode serializes o into a freshly allocated Go buffer.
func Encode(o Object) []byte {
	return EncodeInto(o, func(size int) []byte { return make([]byte, size) })
}

// EncodeInto serializes o into a buffer obtained from alloc. The buffer is
// requested with the exact encoded size and filled completely.
func EncodeInto(o Object, alloc AllocFunc) []byte {
	size := Size(o)

	buf := alloc(size)
	if len(buf) != size {
		panic(fmt.Sprintf("tl: allocator returned %d bytes, want %d", len(buf), size))
	}

	w := bufferWriter{buf: buf}
	w.StoreObject(o)
	if w.pos != size {
		panic(fmt.Sprintf("tl: %s wrote %d bytes, calculated %d", o.TypeName(), w.pos, size))
	}
	return buf
}

// DecodeFunction decodes a request using the DefaultRegistry.
func DecodeFunction(data []byte) (Function, error) {
	return DefaultRegistry.DecodeFunction(data)
}

// DecodeObject decodes a response using the DefaultRegistry.
func DecodeObject(data []byte) (Object, error) {
	return DefaultRegistry.DecodeObject(data)
}

// DecodeFunction decodes a boxed function that must span all of data.
func (r *Registry) DecodeFunction(data []byte) (Function, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmptyBuffer}
	}

	p := NewParser(data, r)
	fn := p.FetchFunction()
	p.FetchEnd()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return fn, nil
}

// DecodeObject decodes a boxed data object that must span all of data.
func (r *Registry) DecodeObject(data []byte) (Object, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmptyBuffer}
	}

	p := NewParser(data, r)
	o := p.FetchObject()
	p.FetchEnd()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

// PeekID returns the constructor id at the start of data.
func PeekID(data []byte) (int32, bool) {
	if len(data) < 4 {
		return 0, false
	}
	p := NewParser(data[:4], nil)
	return p.FetchInt32(), true
}
