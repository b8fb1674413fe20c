// Package core contains the domain contracts shared by every other package:
// the interview Session aggregate, Q&A history items, score cards, the phase
// enumeration, transport events and the SessionStore interface. Concrete
// implementations (in-memory, sqlite, vector index) live in sibling packages
// and depend on core, never the other way around.
package core
