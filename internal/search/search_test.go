package search

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

func TestGoogleSearcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		assert.Equal(t, "emergency plumber sydney", q.Get("q"))
		assert.Equal(t, "engine-1", q.Get("cx"))
		assert.Equal(t, "5", q.Get("num"))
		assert.Equal(t, "key-1", q.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items":[
			{"link":"https://a.example","title":"A","snippet":" first "},
			{"link":"","title":"no link"},
			{"link":"https://b.example","title":"B"}
		]}`)
	}))
	defer srv.Close()

	s, err := NewGoogleSearcher(context.Background(), GoogleConfig{
		APIKey:   "key-1",
		EngineID: "engine-1",
		Endpoint: srv.URL + "/",
	})
	require.NoError(t, err)
	require.True(t, s.IsConfigured())

	got, err := s.Search(context.Background(), "emergency plumber sydney", 5)
	require.NoError(t, err)
	assert.Equal(t, []models.SearchSource{
		{URL: "https://a.example", Title: "A", Snippet: "first"},
		{URL: "https://b.example", Title: "B"},
	}, got)
}

func TestGoogleSearcherNotConfigured(t *testing.T) {
	s, err := NewGoogleSearcher(context.Background(), GoogleConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.False(t, s.IsConfigured())

	_, err = s.Search(context.Background(), "q", 5)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestGoogleSearcherAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"quota"}}`)
	}))
	defer srv.Close()

	s, err := NewGoogleSearcher(context.Background(), GoogleConfig{APIKey: "k", EngineID: "cx", Endpoint: srv.URL + "/"})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "q", 5)
	assert.Error(t, err)
}

func TestGoogleSearcherRateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items":[]}`)
	}))
	defer srv.Close()

	s, err := NewGoogleSearcher(context.Background(), GoogleConfig{
		APIKey:            "k",
		EngineID:          "cx",
		Endpoint:          srv.URL + "/",
		RequestsPerSecond: 0.001,
		Burst:             1,
	})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "first", 5)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Search(ctx, "second", 5)
	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFormatContext(t *testing.T) {
	out := FormatContext([]models.SearchSource{
		{URL: "https://a.example", Title: "A", Snippet: "about a"},
		{URL: "https://b.example", Title: "B"},
	})
	assert.Contains(t, out, "[1] A\nURL: https://a.example\nabout a")
	assert.Contains(t, out, "[2] B\nURL: https://b.example")
	assert.Equal(t, "No search results were found.", FormatContext(nil))
}
