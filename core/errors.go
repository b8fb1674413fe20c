package core

import "errors"

var (
	// ErrNoActiveQuestion is returned when an answer arrives while no
	// question is pending. The session state is left untouched.
	ErrNoActiveQuestion = errors.New("no active question")

	// ErrAlreadyStarted is returned when Start is invoked on a coordinator
	// that already started its interview.
	ErrAlreadyStarted = errors.New("interview already started")

	// ErrSessionNotFound is returned by SessionStore implementations for
	// unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)
