package build

import (
	"io"
	"sync"

	"github.com/btcsuite/btclog"
)

// LogWriter is an io.Writer that multiplexes log output to any number of
// registered sinks (files, stdout, in-memory buffers for tests). It
// implements io.Writer itself so it can be handed directly to
// btclog.NewBackend.
type LogWriter struct {
	mu    sync.Mutex
	sinks []io.Writer
}

// RegisterSink adds w to the set of writers that receive every future
// write. Safe for concurrent use.
func (l *LogWriter) RegisterSink(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sinks = append(l.sinks, w)
}

// Write implements io.Writer, fanning p out to all registered sinks.
func (l *LogWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	sinks := l.sinks
	l.mu.Unlock()

	for _, sink := range sinks {
		if _, err := sink.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// NewSubLogger creates a new btclog.Logger for the named subsystem by
// invoking genSubLogger, the method value of a shared btclog.Backend
// (e.g. backendLog.Logger). If genSubLogger is nil, a disabled logger is
// returned so packages can log unconditionally before the backend has
// been wired up at startup.
func NewSubLogger(subsystem string, genSubLogger func(string) btclog.Logger) btclog.Logger {
	if genSubLogger == nil {
		return btclog.Disabled
	}

	return genSubLogger(subsystem)
}
