// libtlbridge exports the bridge as a C shared library:
//
//	go build -buildmode=c-shared -o libtlbridge.so ./cmd/libtlbridge
//
// Handles are opaque integers. Every result handed out, whether returned by
// trs_execute or passed to a trs_run callback, lives in malloc'd memory and
// must be released with trs_delete_response exactly once.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	uint8_t *data;
	uint64_t len;
} trs_execution_result;

typedef void (*trs_callback)(void *context, trs_execution_result result);

static inline void trs_invoke(trs_callback cb, void *context, trs_execution_result result) {
	cb(context, result);
}
*/
import "C"

import (
	"fmt"
	"math"
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/najoast/tlbridge/bridge"
	"github.com/najoast/tlbridge/client"
	"github.com/najoast/tlbridge/config"
	"github.com/najoast/tlbridge/core"
	"github.com/najoast/tlbridge/logging"
	"github.com/najoast/tlbridge/worker"
)

func main() {}

// cMemory backs response buffers with malloc so they stay valid after
// crossing into C.
type cMemory struct{}

func (cMemory) Allocate(size int) []byte {
	p := C.malloc(C.size_t(size))
	if p == nil {
		panic(fmt.Sprintf("libtlbridge: malloc(%d) failed", size))
	}
	return unsafe.Slice((*byte)(p), size)
}

func (cMemory) Free(buf []byte) {
	C.free(unsafe.Pointer(unsafe.SliceData(buf)))
}

var (
	instance     *bridge.Bridge
	instanceOnce sync.Once
)

// lib returns the process-wide bridge, building it on first use from the
// configuration found by the loader.
func lib() *bridge.Bridge {
	instanceOnce.Do(func() {
		cfg, err := config.NewLoader().AutoLoad()
		if err != nil {
			fmt.Fprintf(os.Stderr, "libtlbridge: %v; using defaults\n", err)
			cfg = config.DefaultConfig()
		}
		logger, level, err := logging.New(cfg.Log)
		if err != nil {
			logger, level = zap.NewNop(), zap.NewAtomicLevel()
		}
		core.SetLogger(logger.Named("core"))

		w := worker.NewLocal(cfg.Worker,
			worker.WithLogger(logger.Named("worker")),
			worker.WithLevel(level))
		instance = bridge.New(w,
			bridge.WithLogger(logger),
			bridge.WithAllocator(bridge.NewAllocator(cMemory{})),
			bridge.WithClientOptions(client.WithMailboxSize(cfg.Client.MailboxSize)))
	})
	return instance
}

// copyQuery copies caller memory into Go memory; decoded requests may
// alias it after the call returns.
func copyQuery(data *C.uint8_t, n C.uint64_t) []byte {
	if data == nil || n == 0 {
		return nil
	}
	if uint64(n) > math.MaxInt32 {
		// Too large for any valid request; decoding the empty buffer
		// reports the error.
		return nil
	}
	return C.GoBytes(unsafe.Pointer(data), C.int(n))
}

func toC(r bridge.ExecutionResult) C.trs_execution_result {
	return C.trs_execution_result{
		data: (*C.uint8_t)(unsafe.Pointer(unsafe.SliceData(r.Data))),
		len:  C.uint64_t(len(r.Data)),
	}
}

func fromC(r C.trs_execution_result) bridge.ExecutionResult {
	if r.data == nil {
		return bridge.ExecutionResult{}
	}
	return bridge.ExecutionResult{Data: unsafe.Slice((*byte)(unsafe.Pointer(r.data)), int(r.len))}
}

func toHandle(h C.uintptr_t) bridge.Handle {
	if uint64(h) > math.MaxUint32 {
		return bridge.InvalidHandle
	}
	return bridge.Handle(h)
}

//export trs_create_client
func trs_create_client() C.uintptr_t {
	h, err := lib().CreateClient()
	if err != nil {
		panic(fmt.Sprintf("libtlbridge: create client: %v", err))
	}
	return C.uintptr_t(h)
}

//export trs_delete_client
func trs_delete_client(handle C.uintptr_t) {
	_ = lib().DeleteClient(toHandle(handle))
}

//export trs_run
func trs_run(handle C.uintptr_t, data *C.uint8_t, n C.uint64_t, cb C.trs_callback, context unsafe.Pointer) {
	if cb == nil {
		_ = lib().Run(toHandle(handle), nil, nil)
		return
	}
	_ = lib().Run(toHandle(handle), copyQuery(data, n), func(r bridge.ExecutionResult) {
		C.trs_invoke(cb, context, toC(r))
	})
}

//export trs_execute
func trs_execute(data *C.uint8_t, n C.uint64_t) C.trs_execution_result {
	return toC(lib().Execute(copyQuery(data, n)))
}

//export trs_delete_response
func trs_delete_response(result C.trs_execution_result) {
	_ = lib().DeleteResponse(fromC(result))
}
