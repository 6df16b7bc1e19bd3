package core

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Actor runs tasks one at a time on a single dedicated goroutine.
type Actor struct {
	name string

	// Task queue, guarded by mu
	mu      sync.Mutex
	queue   []func()
	stopped bool

	// Wakes the loop when the queue becomes non-empty or Stop is called
	wake chan struct{}

	// Closed when the loop goroutine exits
	done chan struct{}

	// Goroutine id of the loop, 0 until it starts
	loopID atomic.Int64

	// Atomic counters for statistics
	state          int32 // ActorState
	tasksProcessed uint64
	createdAt      time.Time
	lastTaskAt     int64 // UnixNano

	logger *zap.Logger
}

// NewActor creates a new Actor instance. It does not run until Start.
func NewActor(opts ActorOptions) *Actor {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = DefaultActorOptions().MailboxSize
	}

	a := &Actor{
		name:      opts.Name,
		queue:     make([]func(), 0, opts.MailboxSize),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		createdAt: time.Now(),
		logger:    Logger().With(zap.String("actor", opts.Name)),
	}

	atomic.StoreInt32(&a.state, int32(ActorStateUninitialized))

	return a
}

// Name returns the name given in ActorOptions.
func (a *Actor) Name() string {
	return a.name
}

// State returns the current lifecycle state.
func (a *Actor) State() ActorState {
	return ActorState(atomic.LoadInt32(&a.state))
}

// Start launches the task loop goroutine.
func (a *Actor) Start() error {
	if !atomic.CompareAndSwapInt32(&a.state, int32(ActorStateUninitialized), int32(ActorStateRunning)) {
		return fmt.Errorf("actor %s: %w (state: %s)", a.name, ErrActorAlreadyStarted, a.State())
	}

	go a.loop()
	a.logger.Debug("actor started")

	return nil
}

// Post queues task to run on the actor goroutine. It never blocks on the
// queue. Tasks posted from inside a running task are accepted too, including
// while draining; a task is accepted only if it is guaranteed to run.
func (a *Actor) Post(task func()) error {
	if task == nil {
		return ErrNilTask
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return fmt.Errorf("actor %s: %w", a.name, ErrActorStopped)
	}
	if a.State() == ActorStateUninitialized {
		a.mu.Unlock()
		return fmt.Errorf("actor %s: %w", a.name, ErrActorNotStarted)
	}
	a.queue = append(a.queue, task)
	a.mu.Unlock()

	a.signal()
	return nil
}

// Stop asks the loop to exit once every queued task has run. It does not
// wait; use Join for that.
func (a *Actor) Stop() error {
	if !atomic.CompareAndSwapInt32(&a.state, int32(ActorStateRunning), int32(ActorStateDraining)) {
		return fmt.Errorf("actor %s cannot be stopped from state %s: %w", a.name, a.State(), ErrActorStopped)
	}

	a.logger.Debug("actor draining")
	a.signal()
	return nil
}

// InLoop reports whether the caller is running on the actor goroutine.
func (a *Actor) InLoop() bool {
	id := a.loopID.Load()
	return id != 0 && id == goroutineID()
}

// Join blocks until the loop goroutine has exited. Calling it from a task
// deadlocks; check InLoop first.
func (a *Actor) Join() {
	<-a.done
}

// Done returns a channel closed when the loop goroutine has exited.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Stats returns current runtime statistics for this Actor.
func (a *Actor) Stats() ActorStats {
	a.mu.Lock()
	queued := len(a.queue)
	a.mu.Unlock()

	var lastTaskAt time.Time
	if last := atomic.LoadInt64(&a.lastTaskAt); last > 0 {
		lastTaskAt = time.Unix(0, last)
	}

	return ActorStats{
		Name:           a.name,
		State:          a.State(),
		TasksProcessed: atomic.LoadUint64(&a.tasksProcessed),
		MailboxSize:    queued,
		CreatedAt:      a.createdAt,
		LastTaskAt:     lastTaskAt,
	}
}

func (a *Actor) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
		// A wakeup is already pending
	}
}

// loop is the main processing loop for the Actor.
func (a *Actor) loop() {
	defer close(a.done)
	a.loopID.Store(goroutineID())

	for {
		batch, exit := a.takeBatch()
		for _, task := range batch {
			a.run(task)
		}
		if exit {
			atomic.StoreInt32(&a.state, int32(ActorStateStopped))
			a.logger.Debug("actor stopped", zap.Uint64("tasks", atomic.LoadUint64(&a.tasksProcessed)))
			return
		}
		if len(batch) == 0 {
			<-a.wake
		}
	}
}

// takeBatch swaps out the queued tasks. When the queue is empty and Stop was
// called it closes the mailbox under the same lock, so no Post can slip in
// between the last batch and the exit.
func (a *Actor) takeBatch() ([]func(), bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.queue) == 0 {
		if a.State() == ActorStateDraining {
			a.stopped = true
			return nil, true
		}
		return nil, false
	}

	batch := a.queue
	a.queue = make([]func(), 0, cap(batch))
	return batch, false
}

// run executes a single task. A panicking task is logged and the loop keeps
// going; callers that need to report failures recover themselves.
func (a *Actor) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("actor task panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	atomic.AddUint64(&a.tasksProcessed, 1)
	atomic.StoreInt64(&a.lastTaskAt, time.Now().UnixNano())

	task()
}
