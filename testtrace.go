package kissev

import (
	"reflect"
	"testing"
	"time"

	"git.fractalqb.de/fractalqb/kissev/evkore"
)

// TestTracer logs all traces to a test's log.
type TestTracer struct{ t testing.TB }

var _ evkore.Tracer = TestTracer{}

func NewTestTracer(t testing.TB) TestTracer { return TestTracer{t} }

func (tr TestTracer) Debug(t *Trace, msg string, args ...any) {
	tr.t.Logf("kissev-DEBUG %s: %s %v", t, msg, args)
}

func (tr TestTracer) Info(t *Trace, msg string, args ...any) {
	tr.t.Logf("kissev-INFO %s: %s %v", t, msg, args)
}

func (tr TestTracer) Warn(t *Trace, msg string, args ...any) {
	tr.t.Logf("kissev-WARN %s: %s %v", t, msg, args)
}

func (tr TestTracer) Register(t *Trace, et reflect.Type, id ListenerID) {
	tr.t.Logf("kissev-Register %s: %s %s", t, et, id)
}

func (tr TestTracer) Unregister(t *Trace, et reflect.Type, id ListenerID) {
	tr.t.Logf("kissev-Unregister %s: %s %s", t, et, id)
}

func (tr TestTracer) StartPost(t *Trace, event any, listeners int) {
	tr.t.Logf("kissev-StartPost %s: %T to %d", t, event, listeners)
}

func (tr TestTracer) DonePost(t *Trace, event any, delivered int, dt time.Duration, err error) {
	tr.t.Logf("kissev-DonePost %s: %T to %d in %s, error: %v", t, event, delivered, dt, err)
}

func (tr TestTracer) DeferPost(t *Trace, event any) {
	tr.t.Logf("kissev-DeferPost %s: %T", t, event)
}
