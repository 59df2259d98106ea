package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediagrab/mediagrab/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newResolveServer serves a tikwm-style resolve response built by data,
// which receives the server's own base URL so media links can point back
// at the test server.
func newResolveServer(t *testing.T, data func(baseURL string) map[string]any) *httptest.Server {
	t.Helper()

	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.URL.Query().Get("url"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"msg":  "success",
			"data": data(srv.URL),
		}))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "media-bytes")
	})

	srv = httptest.NewServer(mux)

	return srv
}

func TestFetch_SingleVideo(t *testing.T) {
	srv := newResolveServer(t, func(baseURL string) map[string]any {
		return map[string]any{
			"id":    "7001",
			"title": "a dance video",
			"play":  baseURL + "/media/video.mp4",
		}
	})
	defer srv.Close()

	outputDir := t.TempDir()

	client := NewClient(srv.URL, "")
	result, err := client.Fetch(context.Background(), "https://tiktok.com/@x/video/7001", outputDir)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, filepath.Join(outputDir, "7001.mp4"), result.Files[0])
	assert.Equal(t, "a dance video", result.Metadata["title"])

	content, err := os.ReadFile(result.Files[0])
	require.NoError(t, err)
	assert.Equal(t, "media-bytes", string(content))
}

func TestFetch_ImagePost(t *testing.T) {
	srv := newResolveServer(t, func(baseURL string) map[string]any {
		return map[string]any{
			"id":    "7002",
			"title": "photo set",
			"images": []string{
				baseURL + "/media/1.jpg",
				baseURL + "/media/2.jpg",
				baseURL + "/media/3.jpg",
			},
		}
	})
	defer srv.Close()

	outputDir := t.TempDir()

	client := NewClient(srv.URL, "")
	result, err := client.Fetch(context.Background(), "https://tiktok.com/@x/photo/7002", outputDir)
	require.NoError(t, err)

	require.Len(t, result.Files, 3)

	for _, f := range result.Files {
		_, err := os.Stat(f)
		assert.NoError(t, err, "downloaded file should exist: %s", f)
	}
}

func TestFetch_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"code": -1,
			"msg":  "Private profile",
		}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Fetch(context.Background(), "https://tiktok.com/@x/video/1", t.TempDir())
	require.Error(t, err)

	var fetchErr *fetch.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "Private profile", fetchErr.Reason)
}

func TestFetch_NoPlayableMedia(t *testing.T) {
	srv := newResolveServer(t, func(string) map[string]any {
		return map[string]any{"id": "7003", "title": "empty"}
	})
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Fetch(context.Background(), "https://tiktok.com/@x/video/7003", t.TempDir())

	var fetchErr *fetch.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Reason, "no playable media")
}
