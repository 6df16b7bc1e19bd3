package core

import (
	"time"
)

// ActorState represents the lifecycle state of an Actor.
type ActorState int32

const (
	// ActorStateUninitialized means the Actor was created but not started
	ActorStateUninitialized ActorState = iota

	// ActorStateRunning means the Actor accepts and runs tasks
	ActorStateRunning

	// ActorStateDraining means Stop was called and queued tasks are finishing
	ActorStateDraining

	// ActorStateStopped means the goroutine has exited
	ActorStateStopped
)

// String returns the string representation of ActorState.
func (s ActorState) String() string {
	switch s {
	case ActorStateUninitialized:
		return "uninitialized"
	case ActorStateRunning:
		return "running"
	case ActorStateDraining:
		return "draining"
	case ActorStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ActorOptions contains configuration options for creating an Actor.
type ActorOptions struct {
	// Name is a human-readable name used in logs
	Name string

	// MailboxSize is the initial capacity of the task queue. The queue grows
	// past it; it never rejects work.
	MailboxSize int
}

// DefaultActorOptions returns sensible default options.
func DefaultActorOptions() ActorOptions {
	return ActorOptions{
		Name:        "",
		MailboxSize: 64,
	}
}

// ActorStats contains runtime statistics for an Actor.
type ActorStats struct {
	// Name of the Actor
	Name string

	// Current state
	State ActorState

	// Total tasks run
	TasksProcessed uint64

	// Tasks currently queued
	MailboxSize int

	// Time when Actor was created
	CreatedAt time.Time

	// Last task run time
	LastTaskAt time.Time
}
