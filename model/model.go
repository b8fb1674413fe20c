package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Request captures one blocking generation call: a system prompt, a user
// prompt and the sampling knobs the collaborator contracts expose.
type Request struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int64   `json:"max_tokens"`
}

// Generator produces completion text for a prompt pair. Calls are blocking
// with unbounded latency from the caller's point of view; transport or
// service failures surface as errors and are not retried internally.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into a fixed-length vector. A failure aborts the
// triggering memory write or search; there is no fallback.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed vector length produced by Embed.
	Dimension() int
}

// Info describes a model backend.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// MockGenerator is a lightweight in-memory Generator for tests and examples.
// Responses are matched by substring of the user prompt in registration
// order; unmatched prompts receive a generic echo.
type MockGenerator struct {
	mu       sync.Mutex
	patterns []string
	replies  map[string][]string
	served   map[string]int
	calls    []Request
}

// NewMockGenerator constructs an empty MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{replies: map[string][]string{}, served: map[string]int{}}
}

// AddResponse registers a canned reply returned when the user prompt
// contains pattern. Multiple replies for the same pattern are served in
// order, repeating the last one.
func (m *MockGenerator) AddResponse(pattern, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.replies[pattern]; !ok {
		m.patterns = append(m.patterns, pattern)
	}
	m.replies[pattern] = append(m.replies[pattern], reply)
}

// Calls returns every request seen so far.
func (m *MockGenerator) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]Request, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	for _, pattern := range m.patterns {
		if strings.Contains(req.User, pattern) || strings.Contains(req.System, pattern) {
			replies := m.replies[pattern]
			i := m.served[pattern]
			if i >= len(replies) {
				i = len(replies) - 1
			}
			m.served[pattern]++
			return replies[i], nil
		}
	}
	return fmt.Sprintf("Mock response to: %s", req.User), nil
}

// MockEmbedder produces deterministic vectors derived from the input text,
// so distance relationships are stable across runs.
type MockEmbedder struct {
	Dim int
}

// NewMockEmbedder creates a MockEmbedder with the given dimension.
func NewMockEmbedder(dim int) *MockEmbedder { return &MockEmbedder{Dim: dim} }

// Embed implements Embedder. The vector is a simple rolling hash spread over
// the dimensions; identical text always yields an identical vector.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, m.Dim)
	var h uint32 = 2166136261
	for i, r := range text {
		h = (h ^ uint32(r)) * 16777619
		vec[i%m.Dim] += float32(h%1000)/1000 - 0.5
	}
	return vec, nil
}

// Dimension implements Embedder.
func (m *MockEmbedder) Dimension() int { return m.Dim }
