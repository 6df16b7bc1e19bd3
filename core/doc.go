// Package core implements the execution context the bridge runs workers in.
//
// An Actor owns one goroutine and an unbounded FIFO mailbox of tasks. Tasks
// run one at a time in submission order, so code that only runs inside the
// actor never observes concurrent entry. Promise carries a one-shot result
// out of the actor.
package core
