package fetch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCookies(t *testing.T) {
	content := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		"",
		".tiktok.com\tTRUE\t/\tTRUE\t1999999999\tsessionid\tabc123",
		".tiktok.com\tTRUE\t/\tTRUE\t1999999999\tmsToken\txyz",
		"malformed line",
	}, "\n")

	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cookies, err := LoadCookies(path)
	if err != nil {
		t.Fatalf("LoadCookies() error = %v", err)
	}

	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}

	if cookies["sessionid"] != "abc123" {
		t.Errorf("sessionid = %q, want %q", cookies["sessionid"], "abc123")
	}
}

func TestLoadCookies_MissingFile(t *testing.T) {
	cookies, err := LoadCookies(filepath.Join(t.TempDir(), "nope.txt"))
	if err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}

	if len(cookies) != 0 {
		t.Errorf("expected empty map, got %v", cookies)
	}
}

func TestLoadCookies_EmptyPath(t *testing.T) {
	cookies, err := LoadCookies("")
	if err != nil || len(cookies) != 0 {
		t.Errorf("LoadCookies(\"\") = (%v, %v), want empty map and nil error", cookies, err)
	}
}

func TestCookieHeader(t *testing.T) {
	header := CookieHeader(map[string]string{"a": "1"})
	if header != "a=1" {
		t.Errorf("CookieHeader() = %q, want %q", header, "a=1")
	}

	header = CookieHeader(map[string]string{"a": "1", "b": "2"})
	if !strings.Contains(header, "a=1") || !strings.Contains(header, "b=2") || !strings.Contains(header, "; ") {
		t.Errorf("unexpected header %q", header)
	}
}
