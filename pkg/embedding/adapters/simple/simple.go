// Package simple provides a deterministic, dependency-free embedding
// provider. The vectors are built from character codes plus a few fixed
// feature slots; they are nowhere near semantic embeddings but they are
// stable, cheap, and good enough for similarity ranking in tests and
// offline setups.
package simple

import (
	"context"
	"strings"
	"sync"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 768

// Provider implements embedding.Provider with a hash-style embedding.
// Embeddings are cached per input text; the provider never fails.
type Provider struct {
	dimensions int

	mu    sync.RWMutex
	cache map[string][]float32
}

// New creates a simple provider with the given dimensionality. Values
// below 4 fall back to the default so the feature slots always fit.
func New(dimensions int) *Provider {
	if dimensions < 4 {
		dimensions = DefaultDimensions
	}
	return &Provider{
		dimensions: dimensions,
		cache:      make(map[string][]float32),
	}
}

// Embed generates a deterministic embedding for text.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.RLock()
	cached, ok := p.cache[text]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	emb := p.build(text)

	p.mu.Lock()
	p.cache[text] = emb
	p.mu.Unlock()
	return emb, nil
}

// EmbedBatch generates embeddings for each text.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		emb, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the configured vector size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

func (p *Provider) build(text string) []float32 {
	normalized := strings.ToLower(strings.TrimSpace(text))
	emb := make([]float32, p.dimensions)

	for i := 0; i < len(normalized); i++ {
		code := int(normalized[i])
		pos := (code + i) % p.dimensions
		emb[pos] = (emb[pos] + float32(code%100)) / 100
	}

	// Fixed feature slots on top of the character hash
	if strings.ContainsAny(normalized, "0123456789") {
		emb[0] = 0.8
	}
	if strings.ContainsAny(text, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		emb[1] = 0.6
	}
	if len(normalized) > 50 {
		emb[2] = 0.7
	}
	if strings.Contains(normalized, "@") {
		emb[3] = 0.9
	}

	return emb
}
