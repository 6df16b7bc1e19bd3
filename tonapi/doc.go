// Package tonapi holds the request and response variants spoken over the
// bridge. Constructor ids are the CRC32 of the TL declaration noted on each
// type, so buffers are interchangeable with other TL implementations of the
// same schema.
//
// All constructors register themselves in tl.DefaultRegistry on import.
package tonapi
