// Package worker defines the capability the bridge dispatches requests to
// and ships Local, an in-process reference worker.
//
// A worker has two entry points. Factory.Execute is the static path: it runs
// on the caller's goroutine and must be safe for concurrent use. Handlers
// created by Factory.NewHandler serve one client and are only ever called
// from that client's execution context.
package worker
