// Package openai implements embedding.Provider on top of the OpenAI
// embeddings API.
package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/engramdev/engram/pkg/log"
)

// ErrEmptyAPIKey is returned when the API key is missing.
var ErrEmptyAPIKey = errors.New("API key cannot be empty")

// Config holds the configuration for the OpenAI provider.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the embedding model, e.g. "text-embedding-ada-002".
	Model string
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
	// Dimensions is the dimensionality of the model's vectors.
	Dimensions int
}

// Provider implements embedding.Provider using the OpenAI API.
type Provider struct {
	client     *openai.Client
	model      string
	dimensions int
}

// New creates an OpenAI embedding provider.
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		config.Model = "text-embedding-ada-002"
	}
	if config.Dimensions == 0 {
		config.Dimensions = 1536
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Provider{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      config.Model,
		dimensions: config.Dimensions,
	}, nil
}

// Embed generates an embedding for a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	embs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log.DebugContext(ctx, "generating embeddings", "count", len(texts), "model", p.model)

	response, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to generate embeddings", "error", err)
		return nil, err
	}

	embeddings := make([][]float32, len(response.Data))
	for i, data := range response.Data {
		embeddings[i] = data.Embedding
	}
	return embeddings, nil
}

// Dimensions returns the configured vector size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}
