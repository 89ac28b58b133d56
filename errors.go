package kissev

import (
	"log"
)

type OnErrFunc func(error)

// LogErr returns an OnErrFunc, e.g. for [System.OnDeferErr], that logs errors
// with the standard logger.
func LogErr(prefix string) OnErrFunc {
	return func(err error) { log.Printf("%s%s", prefix, err) }
}

func Must(err error) {
	if err != nil {
		panic(err)
	}
}

func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func LogMust(err error) {
	if err != nil {
		log.Panic(err)
	}
}

// MustRegister is [Register] that panics on error. Use it with [Setup].
func MustRegister[E any](sys *System, l Listener[E]) ListenerID {
	return Must1(Register(sys, l))
}

// MustRegisterFunc is [RegisterFunc] that panics on error. Use it with [Setup].
func MustRegisterFunc[E any](sys *System, f func(E)) ListenerID {
	return Must1(RegisterFunc(sys, f))
}
