package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mediagrab/mediagrab/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractShortcode(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.instagram.com/p/ABC123/", "ABC123", true},
		{"https://instagram.com/reel/xyz_9-8", "xyz_9-8", true},
		{"https://instagram.com/tv/QQ11", "QQ11", true},
		{"https://instagram.com/someuser", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractShortcode(tt.url)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractShortcode(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFetch_CarouselPost(t *testing.T) {
	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/p/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{{
				"code":    "ABC123",
				"caption": map[string]any{"text": "holiday pics"},
				"carousel_media": []map[string]any{
					{"video_versions": []map[string]any{{"url": srv.URL + "/media/a.mp4"}}},
					{"image_versions2": map[string]any{
						"candidates": []map[string]any{{"url": srv.URL + "/media/b.jpg"}},
					}},
				},
			}},
		}))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "bytes")
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "")
	result, err := client.Fetch(context.Background(), "https://instagram.com/p/ABC123/", t.TempDir())
	require.NoError(t, err)

	require.Len(t, result.Files, 2)
	assert.Contains(t, result.Files[0], "ABC123_01.mp4")
	assert.Contains(t, result.Files[1], "ABC123_02.jpg")
	assert.Equal(t, "holiday pics", result.Metadata["caption"])
}

func TestFetch_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Fetch(context.Background(), "https://instagram.com/p/GONE/", t.TempDir())

	var fetchErr *fetch.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Reason, "login required")
}

func TestFetch_BadURL(t *testing.T) {
	client := NewClient("http://unused", "")
	_, err := client.Fetch(context.Background(), "https://instagram.com/someuser", t.TempDir())

	var fetchErr *fetch.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Reason, "shortcode")
}
