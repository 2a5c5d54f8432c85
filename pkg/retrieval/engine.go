// Package retrieval implements the ranking core: structural filtering,
// keyword and vector scoring, relevance blending, and related-memory
// queries.
package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/engramdev/engram/pkg/consolidator"
	"github.com/engramdev/engram/pkg/embedding"
	"github.com/engramdev/engram/pkg/log"
	"github.com/engramdev/engram/pkg/memory"
	"github.com/engramdev/engram/pkg/store"
)

// DateRange is an inclusive timestamp filter.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Options control a single search. All fields are optional.
type Options struct {
	// Limit caps the result count (default from Config).
	Limit int
	// Category keeps only records carrying the category (case-insensitive).
	Category string
	// MinImportance is an importance floor.
	MinImportance float64
	// DateRange keeps only records whose timestamp falls inside it.
	DateRange *DateRange
	// Entities keeps only records whose content mentions at least one of
	// the given entity names.
	Entities []string
	// UseSemanticSearch selects vector scoring over keyword scoring.
	UseSemanticSearch bool
	// MinSimilarity drops candidates scoring below it outright.
	MinSimilarity float64
}

// Result is one ranked search hit.
type Result struct {
	Record     memory.Record `json:"record"`
	Similarity float64       `json:"similarity"`
	Relevance  float64       `json:"relevance"`
}

// BlendWeights are the relevance blend coefficients.
type BlendWeights struct {
	Importance    float64
	Recency       float64
	CategoryMatch float64
}

// Config contains configuration options for the engine.
type Config struct {
	// DefaultLimit is used when Options.Limit is zero (default 10).
	DefaultLimit int
	// RelatedLimit caps RelatedMemories results (default 5).
	RelatedLimit int
	// MinRelatedness is the relatedness floor for RelatedMemories
	// (default 0.3).
	MinRelatedness float64
	// RecencyWindowDays is the window over which the recency boost decays
	// to zero (default 30).
	RecencyWindowDays int
	// Weights are the relevance blend coefficients (defaults 0.3/0.2/0.3).
	Weights BlendWeights
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:      10,
		RelatedLimit:      5,
		MinRelatedness:    0.3,
		RecencyWindowDays: 30,
		Weights: BlendWeights{
			Importance:    0.3,
			Recency:       0.2,
			CategoryMatch: 0.3,
		},
	}
}

// Engine ranks stored memories against queries.
type Engine struct {
	manager *store.Manager
	config  Config
}

// NewEngine creates an Engine over the given storage manager.
func NewEngine(manager *store.Manager, config Config) *Engine {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 10
	}
	if config.RelatedLimit <= 0 {
		config.RelatedLimit = 5
	}
	if config.MinRelatedness <= 0 {
		config.MinRelatedness = 0.3
	}
	if config.RecencyWindowDays <= 0 {
		config.RecencyWindowDays = 30
	}
	if config.Weights == (BlendWeights{}) {
		config.Weights = DefaultConfig().Weights
	}
	return &Engine{manager: manager, config: config}
}

// Search filters, scores and ranks the stored memories against query.
// An empty candidate set yields an empty result, never an error.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	candidates, err := e.manager.GetAllMemories(ctx)
	if err != nil {
		return nil, err
	}
	candidates = consolidator.Consolidate(candidates)

	filtered := make([]memory.Record, 0, len(candidates))
	for _, r := range candidates {
		if e.passesFilters(r, opts) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return []Result{}, nil
	}

	results := e.score(ctx, query, filtered, opts)
	sortResults(results)

	limit := opts.Limit
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	log.DebugContext(ctx, "search completed", "query", query, "results", len(results))
	return results, nil
}

// passesFilters applies the conjunctive structural filters.
func (e *Engine) passesFilters(r memory.Record, opts Options) bool {
	if opts.Category != "" && !r.HasCategory(opts.Category) {
		return false
	}
	if r.ImportanceScore < opts.MinImportance {
		return false
	}
	if opts.DateRange != nil {
		if !opts.DateRange.Start.IsZero() && r.Timestamp.Before(opts.DateRange.Start) {
			return false
		}
		if !opts.DateRange.End.IsZero() && r.Timestamp.After(opts.DateRange.End) {
			return false
		}
	}
	if len(opts.Entities) > 0 {
		content := strings.ToLower(r.Content)
		found := false
		for _, entity := range opts.Entities {
			if entity != "" && strings.Contains(content, strings.ToLower(entity)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// score runs the similarity pass and the relevance blend. Vector mode
// degrades to keyword mode per candidate when an embedding is missing,
// and wholesale when the provider or query embedding is unavailable.
func (e *Engine) score(ctx context.Context, query string, records []memory.Record, opts Options) []Result {
	var queryVec []float32
	if opts.UseSemanticSearch {
		if embedder := e.manager.Embedder(); embedder != nil {
			vec, err := embedder.Embed(ctx, query)
			if err != nil {
				log.WarnContext(ctx, "query embedding failed, falling back to keyword search", "error", err)
			} else {
				queryVec = vec
			}
		}
	}

	results := make([]Result, 0, len(records))
	for _, r := range records {
		var sim float64
		scored := false
		if queryVec != nil {
			if vec, err := e.manager.Embedding(ctx, r.ID); err == nil {
				sim = embedding.Cosine(queryVec, vec)
				scored = true
			}
		}
		if !scored {
			sim = keywordScore(r.Content, query)
		}
		if opts.MinSimilarity > 0 && sim < opts.MinSimilarity {
			continue
		}
		results = append(results, Result{
			Record:     r,
			Similarity: sim,
			Relevance:  e.relevance(sim, r, query),
		})
	}
	return results
}

// relevance blends similarity with importance, recency, and a category
// match bonus, clamped to 1.
func (e *Engine) relevance(similarity float64, r memory.Record, query string) float64 {
	w := e.config.Weights

	ageDays := time.Since(r.Timestamp).Hours() / 24
	recency := 1 - ageDays/float64(e.config.RecencyWindowDays)
	recency = min(max(recency, 0), 1)

	bonus := 0.0
	queryLower := strings.ToLower(query)
	for _, cat := range r.Categories {
		if strings.Contains(queryLower, cat) {
			bonus = 1.0
			break
		}
	}

	rel := similarity + w.Importance*r.ImportanceScore + w.Recency*recency + w.CategoryMatch*bonus
	return min(rel, 1.0)
}

// keywordScore counts case-insensitive whole-word occurrences of each
// query term in content, divided by the number of terms. An empty query
// scores 1.0 for everything.
func keywordScore(content, query string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 1.0
	}

	words := tokenize(content)
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	total := 0
	for _, term := range terms {
		total += counts[term]
	}
	return float64(total) / float64(len(terms))
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// RelatedMemories ranks every other record by relatedness to the record
// with the given id. A missing id propagates ErrNotFound.
func (e *Engine) RelatedMemories(ctx context.Context, id string, opts Options) ([]Result, error) {
	target, err := e.manager.RetrieveMemory(ctx, id)
	if err != nil {
		return nil, err
	}

	candidates, err := e.manager.GetAllMemories(ctx)
	if err != nil {
		return nil, err
	}

	targetEntities := lowerSet(target.Entities.Names())
	targetTokens := tokenSet(target.Content)

	var results []Result
	for _, r := range candidates {
		if r.ID == target.ID {
			continue
		}
		score := e.relatedness(target, r, targetEntities, targetTokens)
		if score < e.config.MinRelatedness {
			continue
		}
		results = append(results, Result{Record: r, Relevance: score})
	}
	sortResults(results)

	limit := opts.Limit
	if limit <= 0 {
		limit = e.config.RelatedLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// relatedness weighs shared categories, shared entity names, and keyword
// overlap between contents, clamped to 1.
func (e *Engine) relatedness(target, candidate memory.Record, targetEntities, targetTokens map[string]bool) float64 {
	sharedCats := 0
	for _, cat := range candidate.Categories {
		if target.HasCategory(cat) {
			sharedCats++
		}
	}

	sharedEntities := 0
	for name := range lowerSet(candidate.Entities.Names()) {
		if targetEntities[name] {
			sharedEntities++
		}
	}

	overlap := jaccard(targetTokens, tokenSet(candidate.Content))

	score := 0.4*float64(sharedCats) + 0.3*float64(sharedEntities) + 0.3*overlap
	return min(score, 1.0)
}

func lowerSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range tokenize(text) {
		set[w] = true
	}
	return set
}

// jaccard is |intersection| / |union| over distinct tokens.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if b[w] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// sortResults applies the deterministic three-level order: relevance
// descending, importance descending, timestamp most recent first.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		if results[i].Record.ImportanceScore != results[j].Record.ImportanceScore {
			return results[i].Record.ImportanceScore > results[j].Record.ImportanceScore
		}
		return results[i].Record.Timestamp.After(results[j].Record.Timestamp)
	})
}
