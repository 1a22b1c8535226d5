package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := &Client{
		BaseURL:    srv.URL,
		APIToken:   "token-123",
		HTTPClient: srv.Client(),
	}
	return client, srv
}

func TestListArticles(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "-published_at", r.URL.Query().Get("sort"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [
			{"id": "1", "slug": "btc-outlook", "title": "Bitcoin Outlook", "is_premium": true},
			{"id": "2", "slug": "weekly-brief", "title": "Weekly Brief", "is_premium": false}
		]}`))
	}))
	defer srv.Close()

	articles, err := client.ListArticles(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "btc-outlook", articles[0].Slug)
	assert.True(t, articles[0].IsPremium)
	assert.False(t, articles[1].IsPremium)
}

func TestGetArticleMeta(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles/btc-outlook", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"id": "1", "slug": "btc-outlook", "title": "Bitcoin Outlook", "is_premium": true, "published_at": "2025-06-01T08:00:00Z"}}`))
	}))
	defer srv.Close()

	meta, err := client.GetArticleMeta(context.Background(), "btc-outlook")
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin Outlook", meta.Title)
	assert.True(t, meta.IsPremium)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), meta.PublishedAt)
}

func TestGetArticleMetaNotFound(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := client.GetArticleMeta(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetArticleBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles/btc-outlook/body", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"slug": "btc-outlook", "html": "<p>full analysis</p>"}}`))
	}))
	defer srv.Close()

	body, err := client.GetArticleBody(context.Background(), "btc-outlook")
	require.NoError(t, err)
	assert.Equal(t, "<p>full analysis</p>", body.HTML)
}

func TestGetJSONServerError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := client.ListArticles(context.Background(), 0)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestEmptySlugRejected(t *testing.T) {
	client := &Client{BaseURL: "http://cms.local"}

	_, err := client.GetArticleMeta(context.Background(), "")
	assert.Error(t, err)

	_, err = client.GetArticleBody(context.Background(), " ")
	assert.Error(t, err)
}
