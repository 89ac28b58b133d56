package evkore

import (
	"fmt"
	"reflect"
)

type ListenerID uint64

func (id ListenerID) String() string { return fmt.Sprintf("L%d", uint64(id)) }

// Listener receives events of the concrete type returned by EventType.
type Listener interface {
	// EventType returns the dynamic type of the events the listener accepts.
	// It must not change while the listener is registered.
	EventType() reflect.Type

	// Accept is called for each posted event of the listener's EventType.
	Accept(event any)
}

// Identifier can be implemented by listeners that wrap other values, e.g.
// adapters, to make the wrapped value decide about listener identity.
type Identifier interface {
	ListenerIdentity() any
}

// identity returns the value that identifies l in the listener set. It returns
// false if that value cannot be compared.
func identity(l Listener) (any, bool) {
	var key any = l
	if i, ok := l.(Identifier); ok {
		key = i.ListenerIdentity()
	}
	if key == nil {
		return nil, false
	}
	return key, reflect.ValueOf(key).Comparable()
}
