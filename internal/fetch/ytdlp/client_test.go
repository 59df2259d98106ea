package ytdlp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildDownloadArgs(t *testing.T) {
	tests := []struct {
		name       string
		client     *Client
		wantFormat string
		wantCookie bool
	}{
		{
			name:       "defaults",
			client:     NewClient("", "", ""),
			wantFormat: "best[height<=720]",
		},
		{
			name:       "custom format and cookies",
			client:     NewClient("yt-dlp", "bestvideo+bestaudio", "/etc/cookies.txt"),
			wantFormat: "bestvideo+bestaudio",
			wantCookie: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.client.buildDownloadArgs("https://youtube.com/watch?v=x", "/tmp/out")
			joined := strings.Join(args, " ")

			if !strings.Contains(joined, "-f "+tt.wantFormat) {
				t.Errorf("args missing format %q: %s", tt.wantFormat, joined)
			}

			if got := strings.Contains(joined, "--cookies"); got != tt.wantCookie {
				t.Errorf("cookies flag = %v, want %v", got, tt.wantCookie)
			}

			if args[len(args)-1] != "https://youtube.com/watch?v=x" {
				t.Errorf("URL must be the last argument, got %q", args[len(args)-1])
			}
		})
	}
}

func TestExtractErrorReason(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{
			name:   "error line",
			stderr: "WARNING: something\nERROR: Video unavailable\n",
			want:   "Video unavailable",
		},
		{
			name:   "no error line",
			stderr: "some noise",
			want:   "some noise",
		},
		{
			name:   "empty",
			stderr: "",
			want:   "yt-dlp failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractErrorReason(tt.stderr); got != tt.want {
				t.Errorf("extractErrorReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"video.mp4", "audio.m4a", "partial.mp4.part"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := collectFiles(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %v", len(files), files)
	}

	for _, f := range files {
		if strings.HasSuffix(f, ".part") {
			t.Errorf("partial file included: %s", f)
		}
	}
}
