package kissev

import (
	"errors"
	"fmt"
	"reflect"

	"git.fractalqb.de/fractalqb/kissev/evkore"
)

type (
	System     = evkore.System
	Trace      = evkore.Trace
	Tracer     = evkore.Tracer
	ListenerID = evkore.ListenerID
)

// Listener receives events of type E.
type Listener[E any] interface {
	Accept(event E)
}

// Func adapts a function to a [Listener]. Funcs cannot be compared, so each
// registration of a Func is distinct and it can only be unregistered by its
// [ListenerID].
type Func[E any] func(event E)

func (f Func[E]) Accept(event E) { f(event) }

// Of adapts l to the untyped listener of [evkore]. The adapter has the
// identity of l.
func Of[E any](l Listener[E]) evkore.Listener { return typed[E]{l} }

type typed[E any] struct{ l Listener[E] }

var _ evkore.Identifier = typed[int]{}

func (t typed[E]) EventType() reflect.Type { return reflect.TypeFor[E]() }

func (t typed[E]) Accept(event any) { t.l.Accept(event.(E)) }

func (t typed[E]) ListenerIdentity() any { return t.l }

func Register[E any](sys *System, l Listener[E]) (ListenerID, error) {
	if l == nil {
		return 0, evkore.ErrNilListener
	}
	return sys.Register(Of(l))
}

func RegisterFunc[E any](sys *System, f func(E)) (ListenerID, error) {
	if f == nil {
		return 0, evkore.ErrNilListener
	}
	return sys.Register(Of[E](Func[E](f)))
}

func Unregister[E any](sys *System, l Listener[E]) (bool, error) {
	if l == nil {
		return false, evkore.ErrNilListener
	}
	return sys.UnregisterListener(Of(l))
}

// Listeners returns the number of listeners registered for events of type E.
func Listeners[E any](sys *System) int {
	return sys.Listeners(reflect.TypeFor[E]())
}

// Setup calls do with sys and returns panics raised by do as errors. This
// allows to register listeners with the Must helpers.
func Setup(sys *System, do func(sys *System)) (err error) {
	defer func() {
		if p := recover(); p != nil {
			switch p := p.(type) {
			case error:
				err = p
			case string:
				err = errors.New(p)
			default:
				err = fmt.Errorf("panic: %+v", p)
			}
		}
	}()
	do(sys)
	return
}
