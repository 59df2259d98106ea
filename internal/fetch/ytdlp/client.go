// Package ytdlp wraps the yt-dlp binary as a generic media fetcher. It
// serves every platform that has no dedicated client.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mediagrab/mediagrab/internal/fetch"
	"github.com/mediagrab/mediagrab/internal/logctx"
)

const dirPerm = 0o755

type Client struct {
	binary     string
	format     string
	cookieFile string
}

func NewClient(binary, format, cookieFile string) *Client {
	if binary == "" {
		binary = "yt-dlp"
	}

	if format == "" {
		format = "best[height<=720]"
	}

	return &Client{binary: binary, format: format, cookieFile: cookieFile}
}

// mediaInfo is the subset of yt-dlp's -j output we care about.
type mediaInfo struct {
	Title      string `json:"title"`
	ID         string `json:"id"`
	IsLive     bool   `json:"is_live"`
	WebpageURL string `json:"webpage_url"`
}

func (c *Client) Fetch(ctx context.Context, rawURL, outputDir string) (*fetch.Result, error) {
	logger := logctx.LoggerFromContext(ctx)

	info, err := c.probe(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if info.IsLive {
		return nil, &fetch.FetchError{Platform: "generic", URL: rawURL, Reason: "live streams are not supported"}
	}

	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	args := c.buildDownloadArgs(rawURL, outputDir)
	logger.Debug("running yt-dlp", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, c.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &fetch.FetchError{
			Platform: "generic",
			URL:      rawURL,
			Reason:   extractErrorReason(stderr.String()),
			Err:      err,
		}
	}

	files, err := collectFiles(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloaded files: %w", err)
	}

	if len(files) == 0 {
		return nil, &fetch.FetchError{Platform: "generic", URL: rawURL, Reason: "yt-dlp produced no files"}
	}

	logger.Info("yt-dlp fetch completed", "files", len(files), "title", info.Title)

	return &fetch.Result{
		Files:    files,
		Metadata: map[string]string{"title": info.Title},
	}, nil
}

// probe asks yt-dlp for metadata without downloading anything.
func (c *Client) probe(ctx context.Context, rawURL string) (*mediaInfo, error) {
	args := []string{"-j", "--no-playlist", "--no-warnings"}
	if c.cookieFile != "" {
		args = append(args, "--cookies", c.cookieFile)
	}

	args = append(args, rawURL)

	cmd := exec.CommandContext(ctx, c.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &fetch.FetchError{
			Platform: "generic",
			URL:      rawURL,
			Reason:   extractErrorReason(stderr.String()),
			Err:      err,
		}
	}

	var info mediaInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, &fetch.FetchError{Platform: "generic", URL: rawURL, Reason: "malformed yt-dlp metadata", Err: err}
	}

	return &info, nil
}

func (c *Client) buildDownloadArgs(rawURL, outputDir string) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"-f", c.format,
		"-o", filepath.Join(outputDir, "%(title).100s.%(ext)s"),
	}

	if c.cookieFile != "" {
		args = append(args, "--cookies", c.cookieFile)
	}

	return append(args, rawURL)
}

// extractErrorReason pulls the first ERROR line out of yt-dlp stderr so
// the user sees something better than an exit code.
func extractErrorReason(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}

	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}

	return "yt-dlp failed"
}

func collectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// yt-dlp leaves .part files behind on interrupted downloads.
		if strings.HasSuffix(entry.Name(), ".part") {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	return files, nil
}
