package worker

import (
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/najoast/tlbridge/config"
	"github.com/najoast/tlbridge/core"
	"github.com/najoast/tlbridge/logging"
	"github.com/najoast/tlbridge/tl"
	"github.com/najoast/tlbridge/tonapi"
)

// Log tags known to Local. Each carries its own verbosity.
var DefaultLogTags = []string{"bridge", "client", "tl", "worker"}

// Error messages reported by Local.
const (
	MsgNotSynchronous   = "Function can't be executed synchronously"
	MsgWrongVerbosity   = "Wrong new verbosity level"
	MsgUnknownLogTag    = "Log tag is not found"
	MsgAlreadyInited    = "Worker is already initialized"
	MsgClosed           = "Worker is closed"
	MsgMissingOptions   = "Init options are missing"
	MsgUnsupportedQuery = "Function is not supported"
)

// LocalOption configures a Local worker.
type LocalOption func(*Local)

// WithLogger sets the logger that addLogMessage writes to.
func WithLogger(l *zap.Logger) LocalOption {
	return func(w *Local) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithLevel ties the worker's global verbosity to a zap level, so
// setLogVerbosityLevel changes what the process logs. The level is left
// alone until that function runs.
func WithLevel(level zap.AtomicLevel) LocalOption {
	return func(w *Local) {
		w.level = &level
	}
}

// Local is an in-process worker serving the log-management functions
// statically and init, close and ping per client.
type Local struct {
	mu        sync.Mutex
	verbosity int32
	tags      map[string]int32

	level     *zap.AtomicLevel
	logger    *zap.Logger
	pingDelay time.Duration
	walletID  int64
}

// NewLocal creates a reference worker from cfg.
func NewLocal(cfg config.WorkerConfig, opts ...LocalOption) *Local {
	w := &Local{
		verbosity: cfg.Verbosity,
		tags:      make(map[string]int32, len(DefaultLogTags)),
		logger:    zap.NewNop(),
		pingDelay: cfg.PingDelay,
		walletID:  cfg.DefaultWalletID,
	}
	for _, tag := range DefaultLogTags {
		w.tags[tag] = cfg.Verbosity
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Verbosity returns the current global verbosity.
func (w *Local) Verbosity() int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.verbosity
}

// Execute serves the static functions. It is safe for concurrent use.
func (w *Local) Execute(req tl.Function) tl.Object {
	if req == nil {
		return tonapi.InvalidRequest()
	}
	if !IsStatic(req) {
		return tonapi.NewError(tonapi.CodeInvalidQuery, MsgNotSynchronous)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch f := req.(type) {
	case *tonapi.SetLogVerbosityLevel:
		if !validVerbosity(f.NewVerbosityLevel) {
			return tonapi.NewError(tonapi.CodeInvalidQuery, MsgWrongVerbosity)
		}
		w.verbosity = f.NewVerbosityLevel
		if w.level != nil {
			w.level.SetLevel(logging.LevelForVerbosity(f.NewVerbosityLevel))
		}
		return &tonapi.Ok{}

	case *tonapi.GetLogVerbosityLevel:
		return &tonapi.LogVerbosityLevel{VerbosityLevel: w.verbosity}

	case *tonapi.GetLogTags:
		tags := make([]string, 0, len(w.tags))
		for tag := range w.tags {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		return &tonapi.LogTags{Tags: tags}

	case *tonapi.SetLogTagVerbosityLevel:
		if _, ok := w.tags[f.Tag]; !ok {
			return tonapi.NewError(tonapi.CodeInvalidQuery, MsgUnknownLogTag)
		}
		if !validVerbosity(f.NewVerbosityLevel) {
			return tonapi.NewError(tonapi.CodeInvalidQuery, MsgWrongVerbosity)
		}
		w.tags[f.Tag] = f.NewVerbosityLevel
		return &tonapi.Ok{}

	case *tonapi.GetLogTagVerbosityLevel:
		v, ok := w.tags[f.Tag]
		if !ok {
			return tonapi.NewError(tonapi.CodeInvalidQuery, MsgUnknownLogTag)
		}
		return &tonapi.LogVerbosityLevel{VerbosityLevel: v}

	case *tonapi.AddLogMessage:
		if !validVerbosity(f.VerbosityLevel) {
			return tonapi.NewError(tonapi.CodeInvalidQuery, MsgWrongVerbosity)
		}
		if f.VerbosityLevel <= w.verbosity {
			w.log(f.VerbosityLevel, f.Text)
		}
		return &tonapi.Ok{}
	}

	return tonapi.NewError(tonapi.CodeInvalidQuery, MsgNotSynchronous)
}

// log writes text at the level matching verbosity. Fatal is demoted to
// error so a client message can never terminate the process.
func (w *Local) log(verbosity int32, text string) {
	level := logging.LevelForVerbosity(verbosity)
	if level > zapcore.ErrorLevel {
		level = zapcore.ErrorLevel
	}
	if ce := w.logger.Check(level, text); ce != nil {
		ce.Write(zap.String("source", "addLogMessage"))
	}
}

// NewHandler creates the per-client handler.
func (w *Local) NewHandler(ctx Context) Handler {
	return &localHandler{
		worker:  w,
		ctx:     ctx,
		pending: make(map[uint64]*pendingPing),
	}
}

// IsStatic reports whether req can be served by Execute.
func IsStatic(req tl.Function) bool {
	switch req.(type) {
	case *tonapi.SetLogVerbosityLevel, *tonapi.GetLogVerbosityLevel,
		*tonapi.GetLogTags, *tonapi.SetLogTagVerbosityLevel,
		*tonapi.GetLogTagVerbosityLevel, *tonapi.AddLogMessage:
		return true
	default:
		return false
	}
}

func validVerbosity(v int32) bool {
	return v >= 0 && v <= config.MaxVerbosity
}

type pendingPing struct {
	promise *core.Promise[tl.Object]
	timer   *time.Timer
	pingID  int64
}

// localHandler state is only touched from the client's context.
type localHandler struct {
	worker *Local
	ctx    Context

	inited bool
	closed bool

	nextID  uint64
	pending map[uint64]*pendingPing
}

func (h *localHandler) RequestAsync(req tl.Function, promise *core.Promise[tl.Object]) {
	if req == nil {
		promise.SetError(tonapi.InvalidRequest())
		return
	}
	if IsStatic(req) {
		promise.SetValue(h.worker.Execute(req))
		return
	}
	if h.closed {
		promise.SetError(tonapi.NewError(tonapi.CodeInvalidQuery, MsgClosed))
		return
	}

	switch f := req.(type) {
	case *tonapi.Init:
		h.init(f, promise)
	case *tonapi.Close:
		h.close(promise)
	case *tonapi.Ping:
		h.ping(f, promise)
	default:
		promise.SetError(tonapi.NewError(tonapi.CodeInvalidQuery, "%s: %s", MsgUnsupportedQuery, req.TypeName()))
	}
}

func (h *localHandler) init(f *tonapi.Init, promise *core.Promise[tl.Object]) {
	if h.inited {
		promise.SetError(tonapi.NewError(tonapi.CodeInvalidQuery, MsgAlreadyInited))
		return
	}
	if f.Options == nil {
		promise.SetError(tonapi.NewError(tonapi.CodeInvalidQuery, MsgMissingOptions))
		return
	}
	if dir, ok := f.Options.KeystoreType.(*tonapi.KeyStoreTypeDirectory); ok {
		info, err := os.Stat(dir.Directory)
		if err != nil {
			promise.SetError(tonapi.NewError(tonapi.CodeInvalidQuery, "keystore directory: %v", err))
			return
		}
		if !info.IsDir() {
			promise.SetError(tonapi.NewError(tonapi.CodeInvalidQuery, "keystore directory: %s is not a directory", dir.Directory))
			return
		}
	}

	h.inited = true
	promise.SetValue(&tonapi.OptionsInfo{DefaultWalletID: h.worker.walletID})
}

func (h *localHandler) close(promise *core.Promise[tl.Object]) {
	h.failPending()
	h.closed = true
	promise.SetValue(&tonapi.Ok{})
}

func (h *localHandler) ping(f *tonapi.Ping, promise *core.Promise[tl.Object]) {
	delay := h.worker.pingDelay
	if delay <= 0 {
		promise.SetValue(&tonapi.Pong{PingID: f.PingID})
		return
	}

	h.nextID++
	id := h.nextID
	p := &pendingPing{promise: promise, pingID: f.PingID}
	h.pending[id] = p
	p.timer = time.AfterFunc(delay, func() {
		// A failed post means the handler was closed and already
		// completed the promise.
		_ = h.ctx.Post(func() { h.answer(id) })
	})
}

func (h *localHandler) answer(id uint64) {
	p, ok := h.pending[id]
	if !ok {
		return
	}
	delete(h.pending, id)
	p.promise.SetValue(&tonapi.Pong{PingID: p.pingID})
}

func (h *localHandler) failPending() {
	for id, p := range h.pending {
		p.timer.Stop()
		delete(h.pending, id)
		p.promise.SetError(tonapi.NewError(tonapi.CodeInternal, "%s: request cancelled", MsgClosed))
	}
}

// Close completes every pending request before returning.
func (h *localHandler) Close() {
	h.failPending()
	h.closed = true
}
