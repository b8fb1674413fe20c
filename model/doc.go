// Package model defines the text generation and embedding contracts consumed
// by the interview core, plus deterministic mock implementations for tests
// and examples. Provider adapters live in sub-packages (openai, anthropic);
// select one at wiring time.
package model
