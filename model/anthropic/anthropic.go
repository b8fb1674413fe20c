// Package anthropic implements model.Generator on the Anthropic Messages
// API. Anthropic exposes no embedding endpoint, so deployments using this
// backend pair it with a separate Embedder (typically the openai adapter).
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/interviewmesh/model"
)

// Options configure the Anthropic adapter.
type Options struct {
	Model  anthropic.Model
	APIKey string
}

// Model wraps the Anthropic Messages API behind the generic Generator
// interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

var _ model.Generator = (*Model)(nil)

// New creates a new Anthropic adapter using the official client.
func New(optFns ...func(o *Options)) *Model {
	opts := Options{Model: anthropic.ModelClaude3_5Sonnet20241022}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewFromClient creates an adapter from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{Model: anthropic.ModelClaude3_5Sonnet20241022}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Generator with a single non-streaming message.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Info returns metadata describing this adapter.
func (m *Model) Info() model.Info {
	return model.Info{Name: string(m.opts.Model), Provider: "anthropic"}
}
