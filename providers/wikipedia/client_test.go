package wikipedia

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, broken map[string]bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/page/search/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pages":[
			{"key":"Quantum_computing","title":"Quantum computing"},
			{"key":"Qubit","title":"Qubit"}
		]}`)
	})

	mux.HandleFunc("/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/page/summary/"):]
		if broken[key] {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{
			"title": "%s",
			"extract": "Lead extract for %s.",
			"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/%s"}}
		}`, key, key, key)
	})

	mux.HandleFunc("/page/html/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/page/html/"):]
		if broken[key] {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `<html><body>
			<p>First paragraph.</p>
			<p>  </p>
			<p>Second paragraph.</p>
			<p>Third paragraph.</p>
			<p>Fourth paragraph is never included.</p>
		</body></html>`)
	})

	return httptest.NewServer(mux)
}

func TestSearchReturnsArticles(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	client := New(server.URL, 5*time.Second, testLogger())
	articles, err := client.Search(context.Background(), "quantum computing", 3)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "Quantum_computing", first.Title)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Quantum_computing", first.URL)
	assert.Equal(t, "Lead extract for Quantum_computing.", first.Summary)
	assert.Equal(t, "wikipedia", first.Source)
	assert.Equal(t, relevanceScore, first.RelevanceScore)

	// Only the first three non-empty paragraphs make it into content.
	assert.Equal(t, "First paragraph. Second paragraph. Third paragraph.", first.Content)
}

func TestSearchRespectsLimit(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	client := New(server.URL, 5*time.Second, testLogger())
	articles, err := client.Search(context.Background(), "quantum", 1)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Quantum_computing", articles[0].Title)
}

func TestSearchSkipsFailedPageLookups(t *testing.T) {
	server := newTestServer(t, map[string]bool{"Quantum_computing": true})
	defer server.Close()

	client := New(server.URL, 5*time.Second, testLogger())
	articles, err := client.Search(context.Background(), "quantum", 3)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Qubit", articles[0].Title)
}

func TestSearchFailsWhenSearchEndpointDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, testLogger())
	_, err := client.Search(context.Background(), "quantum", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wikipedia search")
}
