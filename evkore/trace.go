package evkore

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

type Tracer interface {
	Debug(t *Trace, msg string, args ...any)
	Info(t *Trace, msg string, args ...any)
	Warn(t *Trace, msg string, args ...any)

	Register(t *Trace, et reflect.Type, id ListenerID)
	Unregister(t *Trace, et reflect.Type, id ListenerID)

	StartPost(t *Trace, event any, listeners int)
	DonePost(t *Trace, event any, delivered int, dt time.Duration, err error)
	DeferPost(t *Trace, event any)
}

type TraceLog int

var DefaultTraceLog TraceLog = TraceWarn

const (
	TraceWarn TraceLog = (1 << iota)
	TraceInfo
	TraceDebug
)

// Trace is passed to a [Tracer] to identify the operation that is traced.
// Posts get a trace with an ID > 0 that is unique per System. Listener
// management is traced with ID 0.
type Trace struct {
	ctx      context.Context
	tr       Tracer
	sys      *System
	id       uint64
	deferred bool
}

func NewTrace(ctx context.Context, t Tracer) *Trace {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Trace{ctx: ctx, tr: t}
}

func (t *Trace) Ctx() context.Context { return t.ctx }

// SetCtx replaces the context of t. Tracers use it to attach values, e.g.
// spans, in StartPost that they need again in DonePost.
func (t *Trace) SetCtx(ctx context.Context) {
	if ctx != nil {
		t.ctx = ctx
	}
}

func (t *Trace) System() *System { return t.sys }
func (t *Trace) ID() uint64      { return t.id }
func (t *Trace) Deferred() bool  { return t.deferred }

func (t *Trace) Debug(msg string, args ...any) { t.tr.Debug(t, msg, args...) }
func (t *Trace) Info(msg string, args ...any)  { t.tr.Info(t, msg, args...) }
func (t *Trace) Warn(msg string, args ...any)  { t.tr.Warn(t, msg, args...) }

func (t *Trace) TopTag() string {
	switch {
	case t.id == 0:
		return "@"
	case t.deferred:
		return fmt.Sprintf("~%d", t.id)
	}
	return fmt.Sprintf("#%d", t.id)
}

func (t *Trace) String() string {
	if t.sys == nil {
		return t.TopTag()
	}
	return t.sys.String() + t.TopTag()
}
