// Package tiktok fetches TikTok and Douyin posts through a tikwm-compatible
// resolve API, then downloads the media files directly.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/mediagrab/mediagrab/internal/fetch"
	"github.com/mediagrab/mediagrab/internal/logctx"
	"golang.org/x/sync/errgroup"
)

const (
	dirPerm          = 0o755
	requestTimeout   = 5 * time.Minute
	progressInterval = 5 << 20 // report every 5 MiB
)

type Client struct {
	baseURL    string
	cookieFile string
}

func NewClient(baseURL, cookieFile string) *Client {
	return &Client{baseURL: baseURL, cookieFile: cookieFile}
}

// resolveResponse is the tikwm-style API envelope. Code 0 means success.
type resolveResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Play   string   `json:"play"`
		Music  string   `json:"music"`
		Images []string `json:"images"`
		Author struct {
			UniqueID string `json:"unique_id"`
		} `json:"author"`
	} `json:"data"`
}

// Fetch resolves the post and downloads either the video or, for image
// posts, every image concurrently. The HTTP client lives only for this
// invocation.
func (c *Client) Fetch(ctx context.Context, rawURL, outputDir string) (*fetch.Result, error) {
	logger := logctx.LoggerFromContext(ctx)

	cookies, err := fetch.LoadCookies(c.cookieFile)
	if err != nil {
		logger.Warn("failed to load tiktok cookies, continuing anonymously", "err", err)
	}

	httpClient := &http.Client{Timeout: requestTimeout}

	resolved, err := c.resolve(ctx, httpClient, cookies, rawURL)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	metadata := map[string]string{
		"title":  resolved.Data.Title,
		"author": resolved.Data.Author.UniqueID,
	}

	if len(resolved.Data.Images) > 0 {
		files, err := c.downloadImages(ctx, httpClient, resolved.Data.ID, resolved.Data.Images, outputDir)
		if err != nil {
			return nil, err
		}

		return &fetch.Result{Files: files, Metadata: metadata}, nil
	}

	if resolved.Data.Play == "" {
		return nil, &fetch.FetchError{Platform: "tiktok", URL: rawURL, Reason: "no playable media in post"}
	}

	target := filepath.Join(outputDir, resolved.Data.ID+".mp4")
	if err := c.downloadFile(ctx, httpClient, resolved.Data.Play, target); err != nil {
		return nil, &fetch.FetchError{Platform: "tiktok", URL: rawURL, Reason: "video download failed", Err: err}
	}

	logger.Info("tiktok fetch completed", "post_id", resolved.Data.ID, "files", 1)

	return &fetch.Result{Files: []string{target}, Metadata: metadata}, nil
}

func (c *Client) resolve(ctx context.Context, httpClient *http.Client, cookies map[string]string, rawURL string) (*resolveResponse, error) {
	endpoint := fmt.Sprintf("%s/api/?url=%s&hd=1", c.baseURL, url.QueryEscape(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build resolve request: %w", err)
	}

	if len(cookies) > 0 {
		req.Header.Set("Cookie", fetch.CookieHeader(cookies))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &fetch.FetchError{Platform: "tiktok", URL: rawURL, Reason: "resolve request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &fetch.FetchError{
			Platform: "tiktok",
			URL:      rawURL,
			Reason:   fmt.Sprintf("resolve API returned status %d", resp.StatusCode),
		}
	}

	var resolved resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&resolved); err != nil {
		return nil, &fetch.FetchError{Platform: "tiktok", URL: rawURL, Reason: "malformed resolve response", Err: err}
	}

	if resolved.Code != 0 {
		return nil, &fetch.FetchError{Platform: "tiktok", URL: rawURL, Reason: resolved.Msg}
	}

	return &resolved, nil
}

func (c *Client) downloadImages(ctx context.Context, httpClient *http.Client, postID string, images []string, outputDir string) ([]string, error) {
	files := make([]string, len(images))

	wg, ctx := errgroup.WithContext(ctx)

	for i, imageURL := range images {
		target := filepath.Join(outputDir, fmt.Sprintf("%s_%02d.jpg", postID, i+1))
		files[i] = target

		wg.Go(func() error {
			return c.downloadFile(ctx, httpClient, imageURL, target)
		})
	}

	if err := wg.Wait(); err != nil {
		return nil, &fetch.FetchError{Platform: "tiktok", URL: postID, Reason: "image download failed", Err: err}
	}

	return files, nil
}

func (c *Client) downloadFile(ctx context.Context, httpClient *http.Client, fileURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create target file: %w", err)
	}
	defer out.Close()

	logger := logctx.LoggerFromContext(ctx)
	body := fetch.NewProgressReader(resp.Body, resp.ContentLength, progressInterval, func(written, total int64) {
		logger.Debug("download progress", "file", filepath.Base(target), "written", written, "total", total)
	})

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
