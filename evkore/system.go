package evkore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"git.fractalqb.de/fractalqb/kissev/hive"
)

// DefaultDeferQueue is the queue length of the hive a System creates for
// deferred posts when no Hive was set.
const DefaultDeferQueue = 64

// System dispatches events to the listeners registered for the event's
// concrete type. The exported fields must be set before the system is used.
type System struct {
	// Name is used to identify the system in traces.
	Name string

	// Tracer is optional. A nil Tracer disables tracing.
	Tracer Tracer

	// Hive runs deferred posts of a synchronised system. If nil, a hive with
	// one bee per CPU and a queue of DefaultDeferQueue is created on demand.
	Hive *hive.Hive

	// OnDeferErr receives the errors of deferred posts. An OnErr already set
	// on Hive is called after OnDeferErr.
	OnDeferErr func(error)

	synced   bool
	mu       sync.RWMutex
	tables   map[reflect.Type]*table
	owner    map[ListenerID]reflect.Type
	idSeq    atomic.Uint64
	traceSeq atomic.Uint64
	hiveInit sync.Once
}

// NewSystem creates a system that is safe for concurrent use if synchronised
// is true. An unsynchronised system must only be used by one goroutine at a
// time.
func NewSystem(synchronised bool) *System {
	return &System{
		synced: synchronised,
		tables: make(map[reflect.Type]*table),
		owner:  make(map[ListenerID]reflect.Type),
	}
}

func (s *System) Synchronised() bool { return s.synced }

func (s *System) String() string {
	if s.Name != "" {
		return s.Name
	}
	if s.synced {
		return "synchronised"
	}
	return "unsynchronised"
}

// Register adds l to the listeners of l.EventType(). If a listener with the
// same identity is already registered for that type, its ID is returned and
// nothing is added.
func (s *System) Register(l Listener) (ListenerID, error) {
	if l == nil {
		return 0, ErrNilListener
	}
	et := l.EventType()
	switch {
	case et == nil:
		return 0, ErrNoEventType
	case et.Kind() == reflect.Interface:
		return 0, fmt.Errorf("%w: %s", ErrInterfaceEvent, et)
	}
	key, ok := identity(l)
	if !ok {
		key = nil
	}
	s.lock()
	tbl := s.tables[et]
	if i, ok := tbl.find(key); ok {
		id := tbl.slots[i].id
		s.unlock()
		return id, nil
	}
	id := ListenerID(s.idSeq.Add(1))
	s.tables[et] = tbl.with(slot{id: id, l: l, key: key})
	s.owner[id] = et
	s.unlock()
	if s.Tracer != nil {
		s.Tracer.Register(s.mgmtTrace(), et, id)
	}
	return id, nil
}

// RegisterAll registers the listeners in order. It stops at the first error
// and returns the IDs registered so far.
func (s *System) RegisterAll(ls ...Listener) (ids []ListenerID, err error) {
	ids = make([]ListenerID, 0, len(ls))
	for i, l := range ls {
		id, err := s.Register(l)
		if err != nil {
			return ids, fmt.Errorf("register listener %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Unregister removes the listener with the given id. It returns false if no
// such listener is registered.
func (s *System) Unregister(id ListenerID) bool {
	s.lock()
	et, ok := s.owner[id]
	if !ok {
		s.unlock()
		return false
	}
	tbl := s.tables[et]
	i, ok := tbl.findID(id)
	if ok {
		s.drop(et, tbl, i)
	}
	s.unlock()
	if ok && s.Tracer != nil {
		s.Tracer.Unregister(s.mgmtTrace(), et, id)
	}
	return ok
}

// UnregisterListener removes the listener with the identity of l from the
// listeners of l.EventType(). Listeners with non-comparable identity can only
// be removed by their ID.
func (s *System) UnregisterListener(l Listener) (bool, error) {
	if l == nil {
		return false, ErrNilListener
	}
	et := l.EventType()
	if et == nil {
		return false, ErrNoEventType
	}
	key, ok := identity(l)
	if !ok {
		return false, fmt.Errorf("%w: %T", ErrNotComparable, l)
	}
	s.lock()
	tbl := s.tables[et]
	i, ok := tbl.find(key)
	var id ListenerID
	if ok {
		id = tbl.slots[i].id
		s.drop(et, tbl, i)
	}
	s.unlock()
	if ok && s.Tracer != nil {
		s.Tracer.Unregister(s.mgmtTrace(), et, id)
	}
	return ok, nil
}

// UnregisterListeners calls UnregisterListener for each listener and returns
// the number of removed listeners. Errors of single listeners are joined.
func (s *System) UnregisterListeners(ls ...Listener) (n int, err error) {
	var errs []error
	for _, l := range ls {
		ok, err := s.UnregisterListener(l)
		if err != nil {
			errs = append(errs, err)
		} else if ok {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// UnregisterType removes all listeners of event type et and returns their
// number.
func (s *System) UnregisterType(et reflect.Type) int {
	s.lock()
	tbl := s.tables[et]
	delete(s.tables, et)
	var ids []ListenerID
	tbl.each(func(sl *slot) {
		delete(s.owner, sl.id)
		ids = append(ids, sl.id)
	})
	s.unlock()
	if s.Tracer != nil {
		tr := s.mgmtTrace()
		for _, id := range ids {
			s.Tracer.Unregister(tr, et, id)
		}
	}
	return len(ids)
}

// UnregisterAll removes every listener.
func (s *System) UnregisterAll() {
	s.lock()
	n := len(s.owner)
	clear(s.tables)
	clear(s.owner)
	s.unlock()
	if s.Tracer != nil {
		s.mgmtTrace().Info("unregistered all `count` listeners", "count", n)
	}
}

// Listeners returns the number of listeners registered for event type et.
func (s *System) Listeners(et reflect.Type) int {
	s.rlock()
	defer s.runlock()
	return s.tables[et].len()
}

// Post delivers event to the listeners registered for the dynamic type of
// event and returns the number of listeners that accepted the event. If there
// is no such listener Post does nothing. If a listener panics, delivery stops
// and a *ListenerPanic error is returned.
//
// Listeners may register or unregister listeners while accepting an event.
// This has no effect on the delivery of the current event.
func (s *System) Post(ctx context.Context, event any) (int, error) {
	if event == nil {
		return 0, ErrNilEvent
	}
	var tr *Trace
	if s.Tracer != nil {
		tr = s.postTrace(ctx, false)
	}
	return s.deliver(tr, event)
}

// Defer is the non-blocking alternative to Post. On a synchronised system the
// event is delivered by one of the bees of s.Hive. Cancelling ctx only affects
// queueing the post, not the delivery. Errors of the delivery are passed to
// OnDeferErr.
//
// On an unsynchronised system Defer acts the same as Post because the
// listeners must not be accessed concurrently.
func (s *System) Defer(ctx context.Context, event any) error {
	if event == nil {
		return ErrNilEvent
	}
	if !s.synced {
		var tr *Trace
		if s.Tracer != nil {
			tr = s.postTrace(ctx, false)
			tr.Debug("unsynchronised system posts deferred `event` inline",
				"event", reflect.TypeOf(event))
		}
		_, err := s.deliver(tr, event)
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var tr *Trace
	if s.Tracer != nil {
		tr = s.postTrace(context.WithoutCancel(ctx), true)
		s.Tracer.DeferPost(tr, event)
	}
	err := s.deferHive().Submit(ctx, func(context.Context) error {
		_, err := s.deliver(tr, event)
		return err
	})
	if err != nil && tr != nil {
		tr.Warn("cannot defer `event`: `error`", "event", reflect.TypeOf(event), "error", err)
	}
	return err
}

// Close stops accepting deferred posts and waits until all queued posts are
// delivered. Post can still be used after Close. Close has no effect on
// unsynchronised systems.
func (s *System) Close() error {
	if !s.synced {
		return nil
	}
	return s.deferHive().Close()
}

// deliver runs the delivery of event. Tracing is disabled if tr is nil.
func (s *System) deliver(tr *Trace, event any) (int, error) {
	et := reflect.TypeOf(event)
	s.rlock()
	tbl := s.tables[et]
	s.runlock()
	if tr == nil {
		return tbl.deliver(event)
	}
	if tbl == nil {
		tr.Debug("no listeners for `event`", "event", et)
	}
	start := time.Now()
	s.Tracer.StartPost(tr, event, tbl.len())
	n, err := tbl.deliver(event)
	s.Tracer.DonePost(tr, event, n, time.Since(start), err)
	return n, err
}

// drop must be called with s locked.
func (s *System) drop(et reflect.Type, tbl *table, i int) {
	delete(s.owner, tbl.slots[i].id)
	if tbl = tbl.without(i); tbl == nil {
		delete(s.tables, et)
	} else {
		s.tables[et] = tbl
	}
}

func (s *System) deferHive() *hive.Hive {
	s.hiveInit.Do(func() {
		if s.Hive == nil {
			s.Hive = hive.New(0, DefaultDeferQueue)
		}
		if next := s.Hive.OnErr; next != nil {
			s.Hive.OnErr = func(err error) {
				s.deferErr(err)
				next(err)
			}
		} else {
			s.Hive.OnErr = s.deferErr
		}
	})
	return s.Hive
}

func (s *System) deferErr(err error) {
	if s.OnDeferErr != nil {
		s.OnDeferErr(err)
	} else if s.Tracer != nil {
		s.mgmtTrace().Warn("deferred post failed with `error`", "error", err)
	}
}

func (s *System) mgmtTrace() *Trace {
	return &Trace{ctx: context.Background(), tr: s.Tracer, sys: s}
}

func (s *System) postTrace(ctx context.Context, deferred bool) *Trace {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Trace{
		ctx:      ctx,
		tr:       s.Tracer,
		sys:      s,
		id:       s.traceSeq.Add(1),
		deferred: deferred,
	}
}

func (s *System) lock() {
	if s.synced {
		s.mu.Lock()
	}
}

func (s *System) unlock() {
	if s.synced {
		s.mu.Unlock()
	}
}

func (s *System) rlock() {
	if s.synced {
		s.mu.RLock()
	}
}

func (s *System) runlock() {
	if s.synced {
		s.mu.RUnlock()
	}
}
