// Package audit implements async dispatch of account-security events.
//
// The [Dispatcher] relays [Event] values to a [Sink] from a single goroutine,
// either dropping or blocking when its buffer is full. Deciding which events
// to emit belongs to the engine; this package only buffers and delivers.
package audit
