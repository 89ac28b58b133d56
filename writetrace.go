package kissev

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"time"

	"git.fractalqb.de/fractalqb/kissev/evkore"
	"git.fractalqb.de/fractalqb/sllm/v3"
)

// WriteTracer writes trace lines to W. Log messages use sllm templates, e.g.
//
//	tr.Info("deferred `event`", "event", e)
//
// A WriteTracer can be used concurrently.
type WriteTracer struct {
	W   io.Writer
	Log evkore.TraceLog

	mu sync.Mutex
}

var _ evkore.Tracer = (*WriteTracer)(nil)

// NewWriteTracer returns a tracer with [evkore.DefaultTraceLog]. If prefix is
// not empty each line written to w starts with prefix.
func NewWriteTracer(w io.Writer, prefix string) *WriteTracer {
	if prefix != "" {
		w = newPrefixWriterString(w, prefix)
	}
	return &WriteTracer{W: w, Log: evkore.DefaultTraceLog}
}

// DefaultTracer returns a tracer that writes warnings to stderr. It is used by
// [NewSystem] when tracing is configured.
func DefaultTracer() *WriteTracer {
	return &WriteTracer{W: os.Stderr, Log: evkore.TraceWarn}
}

func (tr *WriteTracer) ParseLogFlag(f string) error {
	switch f {
	case "":
		return nil
	case "off":
		tr.Log = 0
	case "warn", "w":
		tr.Log = evkore.TraceWarn
	case "info", "i":
		tr.Log = evkore.TraceWarn | evkore.TraceInfo
	case "debug", "d":
		tr.Log = evkore.TraceWarn | evkore.TraceInfo | evkore.TraceDebug
	default:
		return fmt.Errorf("write tracer: illegal log flag '%s'", f)
	}
	return nil
}

func (tr *WriteTracer) Debug(t *Trace, msg string, args ...any) {
	if tr.Log&evkore.TraceDebug == 0 {
		return
	}
	tr.msg(t, "DEBUG", msg, args)
}

func (tr *WriteTracer) Info(t *Trace, msg string, args ...any) {
	if tr.Log&(evkore.TraceInfo|evkore.TraceDebug) == 0 {
		return
	}
	tr.msg(t, "INFO ", msg, args)
}

func (tr *WriteTracer) Warn(t *Trace, msg string, args ...any) {
	if tr.Log&(evkore.TraceWarn|evkore.TraceInfo|evkore.TraceDebug) == 0 {
		return
	}
	tr.msg(t, "WARN ", msg, args)
}

func (tr *WriteTracer) Register(t *Trace, et reflect.Type, id ListenerID) {
	if tr.logInfo() {
		tr.printf("%s\t+ listener %s for %s\n", t, id, et)
	}
}

func (tr *WriteTracer) Unregister(t *Trace, et reflect.Type, id ListenerID) {
	if tr.logInfo() {
		tr.printf("%s\t- listener %s for %s\n", t, id, et)
	}
}

func (tr *WriteTracer) StartPost(t *Trace, event any, listeners int) {
	if tr.Log&evkore.TraceDebug != 0 {
		tr.printf("%s\t{ post %T to %d listeners\n", t, event, listeners)
	}
}

func (tr *WriteTracer) DonePost(t *Trace, event any, delivered int, dt time.Duration, err error) {
	switch {
	case err != nil:
		if tr.Log != 0 {
			tr.printf("%s\t} post %T failed after %d listeners: %s\n", t, event, delivered, err)
		}
	case tr.logInfo():
		tr.printf("%s\t} post %T to %d listeners took %s\n", t, event, delivered, dt)
	}
}

func (tr *WriteTracer) DeferPost(t *Trace, event any) {
	if tr.Log&evkore.TraceDebug != 0 {
		tr.printf("%s\t~ defer %T\n", t, event)
	}
}

func (tr *WriteTracer) logInfo() bool {
	return tr.Log&(evkore.TraceInfo|evkore.TraceDebug) != 0
}

func (tr *WriteTracer) printf(format string, a ...any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	fmt.Fprintf(tr.W, format, a...)
}

func (tr *WriteTracer) msg(t *Trace, level, msg string, args []any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	fmt.Fprintf(tr.W, "%s\t  %s ", t, level)
	sllm.Fprint(tr.W, msg, sllmArgs(args).append)
	fmt.Fprintln(tr.W)
}

type sllmArgs []any

func (as sllmArgs) append(buf []byte, _ int, n string) ([]byte, error) {
	for len(as) > 0 {
		switch k := as[0].(type) {
		case string:
			if len(as) == 1 {
				return buf, fmt.Errorf("no value for key '%s'", n)
			}
			if k == n {
				return sllm.AppendArg(buf, as[1]), nil
			}
			as = as[2:]
		case slog.Attr:
			if k.Key == n {
				return sllm.AppendArg(buf, k.Value), nil
			}
			as = as[1:]
		default:
			return buf, fmt.Errorf("illegal key type %T", k)
		}
	}
	return buf, fmt.Errorf("no key '%s'", n)
}
