// Package instagram fetches Instagram posts, reels and IGTV through the
// web JSON endpoint, optionally authenticated with a session cookie file.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/mediagrab/mediagrab/internal/fetch"
	"github.com/mediagrab/mediagrab/internal/logctx"
)

const (
	dirPerm          = 0o755
	requestTimeout   = 5 * time.Minute
	progressInterval = 5 << 20 // report every 5 MiB
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var shortcodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`instagram\.com/p/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`instagram\.com/reel/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`instagram\.com/tv/([A-Za-z0-9_-]+)`),
}

type Client struct {
	baseURL    string
	cookieFile string
}

func NewClient(baseURL, cookieFile string) *Client {
	if baseURL == "" {
		baseURL = "https://www.instagram.com"
	}

	return &Client{baseURL: baseURL, cookieFile: cookieFile}
}

type mediaVersion struct {
	URL string `json:"url"`
}

type imageVersions struct {
	Candidates []mediaVersion `json:"candidates"`
}

type carouselEntry struct {
	VideoVersions []mediaVersion `json:"video_versions"`
	ImageVersions imageVersions  `json:"image_versions2"`
}

type postItem struct {
	Code    string `json:"code"`
	Caption struct {
		Text string `json:"text"`
	} `json:"caption"`
	VideoVersions []mediaVersion  `json:"video_versions"`
	ImageVersions imageVersions   `json:"image_versions2"`
	CarouselMedia []carouselEntry `json:"carousel_media"`
}

// postInfo is the subset of the web JSON payload the fetcher needs.
type postInfo struct {
	Items []postItem `json:"items"`
}

// ExtractShortcode pulls the post shortcode out of an Instagram URL.
func ExtractShortcode(rawURL string) (string, bool) {
	for _, pattern := range shortcodePatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}

	return "", false
}

func (c *Client) Fetch(ctx context.Context, rawURL, outputDir string) (*fetch.Result, error) {
	logger := logctx.LoggerFromContext(ctx)

	shortcode, ok := ExtractShortcode(rawURL)
	if !ok {
		return nil, &fetch.FetchError{Platform: "instagram", URL: rawURL, Reason: "could not extract post shortcode"}
	}

	cookies, err := fetch.LoadCookies(c.cookieFile)
	if err != nil {
		logger.Warn("failed to load instagram cookies, continuing anonymously", "err", err)
	}

	httpClient := &http.Client{Timeout: requestTimeout}

	info, err := c.fetchPostInfo(ctx, httpClient, cookies, rawURL, shortcode)
	if err != nil {
		return nil, err
	}

	if len(info.Items) == 0 {
		return nil, &fetch.FetchError{Platform: "instagram", URL: rawURL, Reason: "post not found or login required"}
	}

	item := info.Items[0]

	mediaURLs := collectMediaURLs(item)
	if len(mediaURLs) == 0 {
		return nil, &fetch.FetchError{Platform: "instagram", URL: rawURL, Reason: "no downloadable media in post"}
	}

	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []string

	for i, media := range mediaURLs {
		target := filepath.Join(outputDir, fmt.Sprintf("%s_%02d%s", shortcode, i+1, media.ext))
		if err := c.downloadFile(ctx, httpClient, media.url, target); err != nil {
			return nil, &fetch.FetchError{Platform: "instagram", URL: rawURL, Reason: "media download failed", Err: err}
		}

		files = append(files, target)
	}

	logger.Info("instagram fetch completed", "shortcode", shortcode, "files", len(files))

	return &fetch.Result{
		Files:    files,
		Metadata: map[string]string{"caption": item.Caption.Text},
	}, nil
}

type mediaURL struct {
	url string
	ext string
}

// collectMediaURLs prefers video over image per media entry and flattens
// carousels into their individual entries.
func collectMediaURLs(item postItem) []mediaURL {
	if len(item.CarouselMedia) > 0 {
		var urls []mediaURL

		for _, media := range item.CarouselMedia {
			switch {
			case len(media.VideoVersions) > 0:
				urls = append(urls, mediaURL{url: media.VideoVersions[0].URL, ext: ".mp4"})
			case len(media.ImageVersions.Candidates) > 0:
				urls = append(urls, mediaURL{url: media.ImageVersions.Candidates[0].URL, ext: ".jpg"})
			}
		}

		return urls
	}

	if len(item.VideoVersions) > 0 {
		return []mediaURL{{url: item.VideoVersions[0].URL, ext: ".mp4"}}
	}

	if len(item.ImageVersions.Candidates) > 0 {
		return []mediaURL{{url: item.ImageVersions.Candidates[0].URL, ext: ".jpg"}}
	}

	return nil
}

func (c *Client) fetchPostInfo(ctx context.Context, httpClient *http.Client, cookies map[string]string, rawURL, shortcode string) (*postInfo, error) {
	endpoint := fmt.Sprintf("%s/p/%s/?__a=1&__d=dis", c.baseURL, shortcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build post info request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if len(cookies) > 0 {
		req.Header.Set("Cookie", fetch.CookieHeader(cookies))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &fetch.FetchError{Platform: "instagram", URL: rawURL, Reason: "post info request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &fetch.FetchError{
			Platform: "instagram",
			URL:      rawURL,
			Reason:   fmt.Sprintf("post info returned status %d", resp.StatusCode),
		}
	}

	var info postInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &fetch.FetchError{Platform: "instagram", URL: rawURL, Reason: "malformed post info response", Err: err}
	}

	return &info, nil
}

func (c *Client) downloadFile(ctx context.Context, httpClient *http.Client, fileURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

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
