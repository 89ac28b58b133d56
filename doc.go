// Package kissev is a small, type-keyed event system for Go programs. Keep it
// simple: listeners are registered for one concrete event type and posting an
// event calls every listener registered for exactly that type.
//
//	type Joined struct{ Name string }
//
//	sys := kissev.Synchronised()
//	kissev.RegisterFunc(sys, func(e Joined) { fmt.Println("hello", e.Name) })
//	sys.Post(ctx, Joined{Name: "Alice"})
//
// Events are delivered synchronously by [System.Post]. [System.Defer] hands
// the delivery to a pool of worker goroutines if the system is synchronised.
// Unsynchronised systems avoid all locking and must only be used from one
// goroutine at a time. On those, Defer delivers inline like Post.
//
// The core model with its untyped listener interface is implemented in
// package [evkore]. This package adds the generic, typed API, default systems,
// configuration from the environment and tracers.
//
// # Configuration
//
// The default systems returned by [Synchronised] and [Unsynchronised] are
// configured from environment variables, see [Config].
//
// [evkore]: https://pkg.go.dev/git.fractalqb.de/fractalqb/kissev/evkore
package kissev
