package reactive

import (
	"fmt"
	"log"
	"sync"

	"github.com/WangZhekun/vue/internal/errors"
)

// handlers routes diagnostics. Warnings are programmer errors that the
// runtime tolerates; errors are recoverable or fatal conditions that
// left a watcher skipped or stale.
var (
	handlerMu    sync.RWMutex
	warnHandler  = defaultWarnHandler
	errorHandler = defaultErrorHandler
)

func defaultWarnHandler(err *errors.RuntimeError) {
	log.Printf("[vue warn] %v", err)
}

func defaultErrorHandler(err error) {
	log.Printf("[vue error] %v", err)
}

// SetWarnHandler replaces the handler for non-fatal programmer-error
// warnings (root structural mutation, duplicate keys, ...).
// Passing nil restores the default log-based handler.
func SetWarnHandler(fn func(*errors.RuntimeError)) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	if fn == nil {
		fn = defaultWarnHandler
	}
	warnHandler = fn
}

// SetErrorHandler replaces the handler for recoverable watcher errors
// and fatal scheduler diagnostics. Passing nil restores the default.
func SetErrorHandler(fn func(error)) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	if fn == nil {
		fn = defaultErrorHandler
	}
	errorHandler = fn
}

// warn reports a programmer error without aborting anything.
func warn(err *errors.RuntimeError) {
	handlerMu.RLock()
	fn := warnHandler
	handlerMu.RUnlock()
	fn(err)
}

// handleError reports a recoverable or fatal error. Execution of
// sibling watchers continues; only the failed watcher is affected.
func handleError(err error) {
	handlerMu.RLock()
	fn := errorHandler
	handlerMu.RUnlock()
	fn(err)
}

// ReportWarning routes a diagnostic through the installed warn
// handler. Used by layers above the reactive graph (the runtime, the
// patcher glue) so every diagnostic reaches one sink.
func ReportWarning(err *errors.RuntimeError) {
	warn(err)
}

// ReportError routes an error through the installed error handler.
func ReportError(err error) {
	handleError(err)
}

// recoveredError converts a recovered panic value into an error.
func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
