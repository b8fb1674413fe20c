// Package openai implements model.Generator and model.Embedder on the OpenAI
// Chat Completions and Embeddings APIs using the official Go SDK.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/interviewmesh/model"
)

// Dimension of text-embedding-3-small vectors.
const embeddingDimension = 1536

// Options configure the OpenAI adapter. Fields mirror a minimal subset of
// the Chat Completion parameters; extend via functional options without
// breaking callers.
type Options struct {
	Model          string
	EmbeddingModel openai.EmbeddingModel
}

// Model wraps the OpenAI client behind the generic Generator and Embedder
// interfaces. One instance serves both generation and embedding.
type Model struct {
	client *openai.Client
	opts   Options
}

var (
	_ model.Generator = (*Model)(nil)
	_ model.Embedder  = (*Model)(nil)
)

// New creates an adapter using a client configured from the environment
// (OPENAI_API_KEY).
func New(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an adapter from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:          openai.ChatModelGPT4o,
		EmbeddingModel: openai.EmbeddingModelTextEmbedding3Small,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Generator with a single non-streaming
// completion. The request's temperature and max token budget are applied
// per call since each collaborator uses different sampling settings.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: m.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed implements model.Embedder.
func (m *Model) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := m.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: m.opts.EmbeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimension implements model.Embedder.
func (m *Model) Dimension() int { return embeddingDimension }

// Info returns metadata describing this adapter.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}
