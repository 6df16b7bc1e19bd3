// Package tl implements the TL binary encoding used on the bridge wire.
//
// Every serialized object starts with a 4-byte little-endian constructor id
// followed by the object's fields in declaration order. A buffer is only
// accepted by the decoder when the object ends exactly at the end of the
// buffer; short and over-long buffers are both decode errors.
//
// Concrete request and response types live in their own schema package and
// register their constructors with a Registry (usually DefaultRegistry).
package tl
