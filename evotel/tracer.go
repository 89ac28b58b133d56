// Package evotel traces kissev posts with OpenTelemetry. Each post becomes a
// span, deferred posts get an additional span for queueing the event that is
// the parent of the delivery span.
package evotel

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"git.fractalqb.de/fractalqb/kissev/evkore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ScopeName = "git.fractalqb.de/fractalqb/kissev"

const (
	AttrEventType = attribute.Key("kissev.event.type")
	AttrListeners = attribute.Key("kissev.listeners")
	AttrDelivered = attribute.Key("kissev.delivered")
	AttrListener  = attribute.Key("kissev.listener")
	AttrSystem    = attribute.Key("kissev.system")
)

// Tracer implements [evkore.Tracer]. All calls are also passed to Next if it
// is not nil.
type Tracer struct {
	T    trace.Tracer
	Next evkore.Tracer
}

var _ evkore.Tracer = (*Tracer)(nil)

// New creates a tracer from tp. If tp is nil the global tracer provider is
// used.
func New(tp trace.TracerProvider, next evkore.Tracer) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{T: tp.Tracer(ScopeName), Next: next}
}

func (tr *Tracer) Debug(t *evkore.Trace, msg string, args ...any) {
	tr.event(t, "debug", msg, args)
	if tr.Next != nil {
		tr.Next.Debug(t, msg, args...)
	}
}

func (tr *Tracer) Info(t *evkore.Trace, msg string, args ...any) {
	tr.event(t, "info", msg, args)
	if tr.Next != nil {
		tr.Next.Info(t, msg, args...)
	}
}

func (tr *Tracer) Warn(t *evkore.Trace, msg string, args ...any) {
	tr.event(t, "warn", msg, args)
	if tr.Next != nil {
		tr.Next.Warn(t, msg, args...)
	}
}

func (tr *Tracer) Register(t *evkore.Trace, et reflect.Type, id evkore.ListenerID) {
	if tr.Next != nil {
		tr.Next.Register(t, et, id)
	}
}

func (tr *Tracer) Unregister(t *evkore.Trace, et reflect.Type, id evkore.ListenerID) {
	if tr.Next != nil {
		tr.Next.Unregister(t, et, id)
	}
}

func (tr *Tracer) StartPost(t *evkore.Trace, event any, listeners int) {
	ctx, _ := tr.T.Start(t.Ctx(), "kissev.post",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrSystem.String(systemName(t)),
			AttrEventType.String(fmt.Sprintf("%T", event)),
			AttrListeners.Int(listeners),
		),
	)
	t.SetCtx(ctx)
	if tr.Next != nil {
		tr.Next.StartPost(t, event, listeners)
	}
}

func (tr *Tracer) DonePost(t *evkore.Trace, event any, delivered int, dt time.Duration, err error) {
	span := trace.SpanFromContext(t.Ctx())
	span.SetAttributes(AttrDelivered.Int(delivered))
	if err != nil {
		var lp *evkore.ListenerPanic
		if errors.As(err, &lp) {
			span.SetAttributes(AttrListener.String(lp.ID.String()))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	if tr.Next != nil {
		tr.Next.DonePost(t, event, delivered, dt, err)
	}
}

func (tr *Tracer) DeferPost(t *evkore.Trace, event any) {
	ctx, span := tr.T.Start(t.Ctx(), "kissev.defer",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			AttrSystem.String(systemName(t)),
			AttrEventType.String(fmt.Sprintf("%T", event)),
		),
	)
	span.End()
	t.SetCtx(ctx)
	if tr.Next != nil {
		tr.Next.DeferPost(t, event)
	}
}

func (tr *Tracer) event(t *evkore.Trace, level, msg string, args []any) {
	span := trace.SpanFromContext(t.Ctx())
	if !span.IsRecording() {
		return
	}
	attrs := append(make([]attribute.KeyValue, 0, 1+len(args)/2),
		attribute.String("level", level),
	)
	for len(args) > 0 {
		switch k := args[0].(type) {
		case string:
			if len(args) == 1 {
				args = nil
				break
			}
			attrs = append(attrs, attribute.String(k, fmt.Sprint(args[1])))
			args = args[2:]
		case slog.Attr:
			attrs = append(attrs, attribute.String(k.Key, k.Value.String()))
			args = args[1:]
		default:
			args = args[1:]
		}
	}
	span.AddEvent(msg, trace.WithAttributes(attrs...))
}

func systemName(t *evkore.Trace) string {
	if sys := t.System(); sys != nil {
		return sys.String()
	}
	return ""
}
