// Package bridge is the boundary between foreign callers and the client
// layer. Callers hold opaque handles instead of pointers and receive
// serialized responses in buffers they must hand back through
// DeleteResponse exactly once.
//
// Every call yields a well-formed response: decode failures, invalid
// requests and internal faults are encoded as error objects and travel the
// same path as results.
package bridge
