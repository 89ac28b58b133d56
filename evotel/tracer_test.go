package evotel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"git.fractalqb.de/fractalqb/kissev/evkore"
	"git.fractalqb.de/fractalqb/kissev/hive"
	"git.fractalqb.de/fractalqb/testerr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type tick struct{ n int }

type tickListener struct{ fail bool }

func (*tickListener) EventType() reflect.Type { return reflect.TypeFor[tick]() }

func (l *tickListener) Accept(any) {
	if l.fail {
		panic(errors.New("tick failed"))
	}
}

func newSystem(t *testing.T) (*evkore.System, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { tp.Shutdown(context.Background()) })
	sys := evkore.NewSystem(true)
	sys.Name = "otel"
	sys.Tracer = New(tp, nil)
	return sys, sr
}

func attr(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracer_post(t *testing.T) {
	sys, sr := newSystem(t)
	testerr.F1(sys.Register(&tickListener{})).ShallBeNil(t)
	testerr.F1(sys.Post(context.Background(), tick{1})).ShallBeNil(t)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans", len(spans))
	}
	span := spans[0]
	if n := span.Name(); n != "kissev.post" {
		t.Errorf("unexpected span name '%s'", n)
	}
	if v, _ := attr(span.Attributes(), AttrEventType); v.AsString() != "evotel.tick" {
		t.Errorf("unexpected event type '%s'", v.AsString())
	}
	if v, _ := attr(span.Attributes(), AttrSystem); v.AsString() != "otel" {
		t.Errorf("unexpected system '%s'", v.AsString())
	}
	if v, _ := attr(span.Attributes(), AttrListeners); v.AsInt64() != 1 {
		t.Errorf("unexpected listeners %d", v.AsInt64())
	}
	if v, _ := attr(span.Attributes(), AttrDelivered); v.AsInt64() != 1 {
		t.Errorf("unexpected delivered %d", v.AsInt64())
	}
	if c := span.Status().Code; c == codes.Error {
		t.Error("successful post has error status")
	}
}

func TestTracer_panic(t *testing.T) {
	sys, sr := newSystem(t)
	id := testerr.F1(sys.Register(&tickListener{fail: true})).ShallBeNil(t)
	if _, err := sys.Post(context.Background(), tick{2}); err == nil {
		t.Fatal("no error from failing listener")
	}
	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans", len(spans))
	}
	span := spans[0]
	if c := span.Status().Code; c != codes.Error {
		t.Errorf("unexpected status %s", c)
	}
	if v, _ := attr(span.Attributes(), AttrListener); v.AsString() != id.String() {
		t.Errorf("unexpected failing listener '%s'", v.AsString())
	}
	if len(span.Events()) == 0 {
		t.Error("error not recorded")
	}
}

func TestTracer_defer(t *testing.T) {
	sys, sr := newSystem(t)
	sys.Hive = hive.New(1, 1)
	testerr.F1(sys.Register(&tickListener{})).ShallBeNil(t)
	testerr.F0(sys.Defer(context.Background(), tick{3})).ShallBeNil(t)
	testerr.F0(sys.Close()).ShallBeNil(t)

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans", len(spans))
	}
	dspan, pspan := spans[0], spans[1]
	if dspan.Name() != "kissev.defer" || pspan.Name() != "kissev.post" {
		t.Fatalf("unexpected spans %s, %s", dspan.Name(), pspan.Name())
	}
	if pspan.Parent().SpanID() != dspan.SpanContext().SpanID() {
		t.Error("deferred post is not a child of its defer span")
	}
}

func TestTracer_next(t *testing.T) {
	sys, _ := newSystem(t)
	var rec recTracer
	sys.Tracer.(*Tracer).Next = &rec
	id := testerr.F1(sys.Register(&tickListener{})).ShallBeNil(t)
	testerr.F1(sys.Post(context.Background(), tick{})).ShallBeNil(t)
	sys.Unregister(id)
	expect := []string{"register", "start", "done", "unregister"}
	if !reflect.DeepEqual(rec.calls, expect) {
		t.Errorf("next tracer got %v", rec.calls)
	}
}

func TestTracer_logEvents(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())
	var rec recTracer
	otr := New(tp, &rec)
	tr := evkore.NewTrace(context.Background(), otr)
	otr.StartPost(tr, tick{}, 1)
	tr.Debug("deliver `event`", "event", "tick", "dangling")
	tr.Warn("slow `listener`", slog.String("listener", "L1"), 4711)
	otr.DonePost(tr, tick{}, 1, time.Millisecond, nil)

	expect := []string{"start", "debug", "warn", "done"}
	if !reflect.DeepEqual(rec.calls, expect) {
		t.Errorf("next tracer got %v", rec.calls)
	}
	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans", len(spans))
	}
	evs := spans[0].Events()
	if len(evs) != 2 {
		t.Fatalf("recorded %d span events", len(evs))
	}
	if evs[0].Name != "deliver `event`" {
		t.Errorf("unexpected debug event '%s'", evs[0].Name)
	}
	if v, _ := attr(evs[0].Attributes, "level"); v.AsString() != "debug" {
		t.Errorf("unexpected level '%s'", v.AsString())
	}
	if v, _ := attr(evs[0].Attributes, "event"); v.AsString() != "tick" {
		t.Errorf("unexpected event attribute '%s'", v.AsString())
	}
	if _, ok := attr(evs[0].Attributes, "dangling"); ok {
		t.Error("key without value became an attribute")
	}
	if v, _ := attr(evs[1].Attributes, "level"); v.AsString() != "warn" {
		t.Errorf("unexpected level '%s'", v.AsString())
	}
	if v, _ := attr(evs[1].Attributes, "listener"); v.AsString() != "L1" {
		t.Errorf("unexpected slog attribute '%s'", v.AsString())
	}
	if n := len(evs[1].Attributes); n != 2 {
		t.Errorf("warn event has %d attributes", n)
	}
}

func TestTracer_wrappedPanic(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())
	otr := New(tp, nil)
	tr := evkore.NewTrace(context.Background(), otr)
	otr.StartPost(tr, tick{}, 1)
	err := fmt.Errorf("deferred: %w", &evkore.ListenerPanic{ID: 7, Event: tick{}, Value: "boom"})
	otr.DonePost(tr, tick{}, 0, time.Millisecond, err)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans", len(spans))
	}
	if v, _ := attr(spans[0].Attributes(), AttrListener); v.AsString() != "L7" {
		t.Errorf("unexpected failing listener '%s'", v.AsString())
	}
	if c := spans[0].Status().Code; c != codes.Error {
		t.Errorf("unexpected status %s", c)
	}
}

type recTracer struct{ calls []string }

func (r *recTracer) Debug(*evkore.Trace, string, ...any) { r.calls = append(r.calls, "debug") }
func (r *recTracer) Info(*evkore.Trace, string, ...any)  { r.calls = append(r.calls, "info") }
func (r *recTracer) Warn(*evkore.Trace, string, ...any)  { r.calls = append(r.calls, "warn") }

func (r *recTracer) Register(*evkore.Trace, reflect.Type, evkore.ListenerID) {
	r.calls = append(r.calls, "register")
}

func (r *recTracer) Unregister(*evkore.Trace, reflect.Type, evkore.ListenerID) {
	r.calls = append(r.calls, "unregister")
}

func (r *recTracer) StartPost(*evkore.Trace, any, int) { r.calls = append(r.calls, "start") }

func (r *recTracer) DonePost(*evkore.Trace, any, int, time.Duration, error) {
	r.calls = append(r.calls, "done")
}

func (r *recTracer) DeferPost(*evkore.Trace, any) { r.calls = append(r.calls, "defer") }
