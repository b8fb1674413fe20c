// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug in
// any structured logger. Core components accept a Logger and fall back to
// NoOpLogger when given nil, so logging never becomes a wiring obligation.
package logging
