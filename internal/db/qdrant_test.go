package db

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQdrant serves just enough of the Qdrant REST API for the client tests.
type fakeQdrant struct {
	collections map[string]bool
	creates     atomic.Int32
	upserts     atomic.Int32
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: map[string]bool{}}
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /collections/{name}/exists", func(w http.ResponseWriter, r *http.Request) {
		exists := f.collections[r.PathValue("name")]
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"exists": exists},
		})
	})

	mux.HandleFunc("PUT /collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.creates.Add(1)
		f.collections[r.PathValue("name")] = true
		json.NewEncoder(w).Encode(map[string]any{"result": true})
	})

	mux.HandleFunc("PUT /collections/{name}/points", func(w http.ResponseWriter, r *http.Request) {
		f.upserts.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "completed"}})
	})

	mux.HandleFunc("POST /collections/{name}/points/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "p1", "score": 0.92, "payload": map[string]any{"source": "a.txt", "page": 0, "page_content": "alpha"}},
				{"id": "p2", "payload": map[string]any{"source": "b.txt", "page": 2, "page_content": "beta"}},
			},
		})
	})

	return mux
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewQdrantClient(QdrantConfig{URL: srv.URL})
	ctx := context.Background()

	require.NoError(t, client.EnsureCollection(ctx, "documents", 384, "Cosine"))
	require.NoError(t, client.EnsureCollection(ctx, "documents", 384, "Cosine"))

	// The second call must observe the existing collection and not recreate it.
	assert.Equal(t, int32(1), fake.creates.Load())
}

func TestUpsertPoints_EmptyBatchIsNoOp(t *testing.T) {
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewQdrantClient(QdrantConfig{URL: srv.URL})

	require.NoError(t, client.UpsertPoints(context.Background(), "documents", nil))
	assert.Equal(t, int32(0), fake.upserts.Load())
}

func TestSearch_DecodesScoredPoints(t *testing.T) {
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewQdrantClient(QdrantConfig{URL: srv.URL})

	points, err := client.Search(context.Background(), "documents", make([]float32, 384), 3)
	require.NoError(t, err)
	require.Len(t, points, 2)

	require.NotNil(t, points[0].Score)
	assert.InDelta(t, 0.92, *points[0].Score, 1e-9)
	assert.Equal(t, "alpha", points[0].Payload["page_content"])

	// Absent score stays nil at this layer; the repository coerces it to 0.
	assert.Nil(t, points[1].Score)
}

func TestSearch_SurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewQdrantClient(QdrantConfig{URL: srv.URL})

	_, err := client.Search(context.Background(), "documents", nil, 3)
	assert.Error(t, err)
}
