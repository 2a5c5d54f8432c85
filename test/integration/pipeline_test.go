//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/detector"
	"github.com/engramdev/engram/pkg/embedding/adapters/simple"
	"github.com/engramdev/engram/pkg/engram"
	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/extractor"
	"github.com/engramdev/engram/pkg/retrieval"
	"github.com/engramdev/engram/pkg/store"
	"github.com/engramdev/engram/pkg/store/adapters/kv/boltdb"
	"github.com/engramdev/engram/pkg/store/adapters/vector/chromem"
	"github.com/engramdev/engram/test/testutil"
)

// TestPipelineOverBoltDB exercises the full ingest/search/related/forget
// pipeline over on-disk BoltDB records and an embedded chromem store.
func TestPipelineOverBoltDB(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test; set INTEGRATION_TESTS=true to run")
	}

	db, _, cleanup := testutil.CreateTempBoltDB(t)
	defer cleanup()

	records, err := boltdb.NewBoltStore(db)
	require.NoError(t, err)

	chromemDB, chromemCleanup := testutil.CreateTempChromemDB(t)
	defer chromemCleanup()

	embeddings, err := chromem.NewChromemStore(chromemDB, chromem.DefaultCollection)
	require.NoError(t, err)

	manager := store.NewManager(records, embeddings, simple.New(64), store.Config{})
	client := engram.New(
		detector.New(detector.DefaultConfig()),
		extractor.New(),
		manager,
		retrieval.NewEngine(manager, retrieval.DefaultConfig()),
		nil,
	)

	ctx := context.Background()

	statements := []string{
		"Alice works at Acme Corp.",
		"Alice visited the Acme office in Denver.",
		"The flight to Tokyo leaves tomorrow at 9.",
	}
	var ids []string
	for _, s := range statements {
		result, err := client.Ingest(ctx, s)
		require.NoError(t, err)
		require.True(t, result.Stored, "expected %q to be stored", s)
		ids = append(ids, result.Record.ID)
	}

	// Trivia never reaches the store.
	skip, err := client.Ingest(ctx, "hm?")
	require.NoError(t, err)
	assert.False(t, skip.Stored)

	// Keyword search.
	results, err := client.Search(ctx, "acme", retrieval.Options{MinSimilarity: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Semantic search ranks the identical statement first.
	results, err = client.Search(ctx, "Alice works at Acme Corp.", retrieval.Options{
		UseSemanticSearch: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, ids[0], results[0].Record.ID)

	// Related memories through shared entities and wording.
	related, err := client.Related(ctx, ids[0], retrieval.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, related)
	assert.Equal(t, ids[1], related[0].Record.ID)

	// Forget removes the record and its embedding.
	require.NoError(t, client.Forget(ctx, ids[0]))
	_, err = client.Recall(ctx, ids[0])
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
