// Package events provides a synchronous, in-process notification bus.
//
// Listeners are kept per event name in registration order. Registering the
// same function twice creates two entries, each with its own ListenerID.
// Emit calls every listener on the caller's goroutine; a listener that
// returns an error or panics is reported to the bus ErrorHandler and the
// remaining listeners still run. Nothing is ever propagated to the emitter.
//
//	bus := events.NewBus(events.WithLogger(logger))
//	id := bus.On("lifecycle:ready", func(args ...any) error {
//	    fmt.Println("ready", args)
//	    return nil
//	})
//	bus.Emit("lifecycle:ready", payload)
//	bus.Off("lifecycle:ready", id)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package events
