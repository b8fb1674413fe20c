// Package interview contains the heart of the system: the phase Controller
// (state machine plus time and question budgets) and the flow Coordinator
// that drives one session end-to-end through its collaborators.
//
// One Coordinator exists per active session. Its operations read-then-write
// shared session state without internal locking and must therefore be
// serialized by the transport layer: a single in-flight NextQuestion or
// ProcessAnswer per session. End is the one exception: it is guarded
// internally so a watchdog-driven finalization racing a request-driven one
// produces exactly one report.
package interview
