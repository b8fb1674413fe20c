// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package to
// centralize domain contracts; keeping only implementations here prevents
// higher level packages from depending on concrete storage.
//
// The in-memory store below suits tests and single-process deployments.
// The sqlite sub-package provides a durable backend; additional ones can be
// added without changing any calling code, since only the wiring layer
// decides which implementation to instantiate.
package session
