// Package evkore implements the core model of kissev, a type-keyed in-process
// event system. A [System] maps concrete event types to the [Listener]s
// registered for them. Posting an event delivers it to every listener
// registered for exactly the event's dynamic type, either synchronously with
// [System.Post] or on a worker goroutine with [System.Defer].
//
// Listeners are registered with set semantics: registering an identical
// listener twice does not deliver events twice. For listeners whose identity
// cannot be compared, e.g. plain functions, each registration is distinct and
// can only be removed by its [ListenerID].
//
// A typed, generic wrapper for everyday use is provided by the [kissev]
// package.
//
// [kissev]: https://pkg.go.dev/git.fractalqb.de/fractalqb/kissev
package evkore
