package evkore

import (
	"errors"
	"fmt"
)

var (
	ErrNilEvent       = errors.New("nil event")
	ErrNilListener    = errors.New("nil listener")
	ErrNoEventType    = errors.New("listener without event type")
	ErrInterfaceEvent = errors.New("interface event type")
	ErrNotComparable  = errors.New("listener identity not comparable")
)

// ListenerPanic is returned when a listener panics while accepting an event.
// Delivery of the event stops at the panicking listener.
type ListenerPanic struct {
	ID    ListenerID
	Event any
	Value any
}

func (e *ListenerPanic) Error() string {
	return fmt.Sprintf("listener %s panic on %T: %v", e.ID, e.Event, e.Value)
}

func (e *ListenerPanic) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
