// Package server exposes interviews over WebSocket plus a small JSON API
// for session setup. One WebSocket connection drives one interview: the
// single read loop serializes all flow operations for its session, and a
// watchdog goroutine ticking beside it is cancelled on disconnect.
package server
