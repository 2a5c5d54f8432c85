package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/detector"
	"github.com/engramdev/engram/pkg/embedding/adapters/simple"
	"github.com/engramdev/engram/pkg/engram"
	"github.com/engramdev/engram/pkg/extractor"
	"github.com/engramdev/engram/pkg/memory"
	"github.com/engramdev/engram/pkg/retrieval"
	"github.com/engramdev/engram/pkg/store"
	"github.com/engramdev/engram/pkg/store/adapters/mock"
)

func newTestServer(t *testing.T) (*Server, *engram.Engram) {
	t.Helper()

	manager := store.NewManager(
		mock.NewRecordStore(),
		mock.NewEmbeddingStore(),
		simple.New(32),
		store.Config{},
	)
	e := engram.New(
		detector.New(detector.DefaultConfig()),
		extractor.New(),
		manager,
		retrieval.NewEngine(manager, retrieval.DefaultConfig()),
		nil,
	)
	t.Cleanup(func() { e.Close() })

	return NewServer(e, "test"), e
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestIngestEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/memories", map[string]string{
		"content": "Alice works at Acme Corp.",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Stored bool          `json:"stored"`
		Record memory.Record `json:"record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Stored)
	assert.NotEmpty(t, resp.Record.ID)
}

func TestIngestEndpoint_NotWorthStoring(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/memories", map[string]string{
		"content": "what time?",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["stored"])
}

func TestIngestEndpoint_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/memories", map[string]string{"content": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/memories", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndDeleteEndpoints(t *testing.T) {
	srv, e := newTestServer(t)

	stored, err := e.Remember(t.Context(), memory.Record{Content: "persisted via facade"})
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodGet, "/api/memories/"+stored.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got memory.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, stored.Content, got.Content)

	w = doJSON(t, srv, http.MethodDelete, "/api/memories/"+stored.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/memories/"+stored.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	srv, e := newTestServer(t)

	_, err := e.Ingest(t.Context(), "Alice works at Acme Corp.")
	require.NoError(t, err)
	_, err = e.Ingest(t.Context(), "The flight to Tokyo leaves tomorrow at 9.")
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodPost, "/api/search", map[string]any{
		"query": "acme",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int                `json:"count"`
		Results []retrieval.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.Count)
	assert.Contains(t, resp.Results[0].Record.Content, "Acme")
}

func TestSearchEndpoint_InvalidDateRange(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/search", map[string]any{
		"query": "anything",
		"start": "not-a-time",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRelatedEndpoint(t *testing.T) {
	srv, e := newTestServer(t)

	base, err := e.Ingest(t.Context(), "Alice works at Acme Corp.")
	require.NoError(t, err)
	require.True(t, base.Stored)
	_, err = e.Ingest(t.Context(), "Alice visited the Acme office in Denver.")
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodGet, "/api/memories/"+base.Record.ID+"/related", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp.Count)
}

func TestRelatedEndpoint_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/memories/missing/related", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/memories/missing/related?limit=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
