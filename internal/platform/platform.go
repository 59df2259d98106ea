// Package platform classifies media URLs into the platforms this service
// knows how to fetch from. Classification is pure and safe for concurrent use.
package platform

import (
	"regexp"
	"strings"
)

// Platform identifies a media platform, e.g. "tiktok".
type Platform string

const (
	TikTok    Platform = "tiktok"
	Douyin    Platform = "douyin"
	Instagram Platform = "instagram"
	YouTube   Platform = "youtube"
	Twitter   Platform = "twitter"
	Facebook  Platform = "facebook"
	Generic   Platform = "generic"
)

func (p Platform) String() string { return string(p) }

// Candidate is a URL found in free text together with its detected platform.
type Candidate struct {
	URL      string
	Platform Platform
}

type patternSet struct {
	platform Platform
	patterns []*regexp.Regexp
}

// Pattern sets are evaluated in declaration order; the first match wins.
var patternSets = []patternSet{
	{TikTok, compileAll(
		`^(?:https?://)?(?:www\.)?tiktok\.com/@[^/]+/video/\d+`,
		`^(?:https?://)?(?:vm\.tiktok\.com|vt\.tiktok\.com)/[A-Za-z0-9]+`,
		`^(?:https?://)?(?:www\.)?tiktok\.com/t/[A-Za-z0-9]+`,
	)},
	{Douyin, compileAll(
		`^(?:https?://)?(?:www\.)?douyin\.com/video/\d+`,
		`^(?:https?://)?v\.douyin\.com/[A-Za-z0-9]+`,
	)},
	{Instagram, compileAll(
		`^(?:https?://)?(?:www\.)?instagram\.com/p/[A-Za-z0-9_-]+`,
		`^(?:https?://)?(?:www\.)?instagram\.com/reel/[A-Za-z0-9_-]+`,
		`^(?:https?://)?(?:www\.)?instagram\.com/tv/[A-Za-z0-9_-]+`,
	)},
	{YouTube, compileAll(
		`^(?:https?://)?(?:www\.)?youtube\.com/watch\?v=[A-Za-z0-9_-]+`,
		`^(?:https?://)?youtu\.be/[A-Za-z0-9_-]+`,
		`^(?:https?://)?(?:www\.)?youtube\.com/shorts/[A-Za-z0-9_-]+`,
	)},
	{Twitter, compileAll(
		`^(?:https?://)?(?:www\.)?twitter\.com/[^/]+/status/\d+`,
		`^(?:https?://)?(?:www\.)?x\.com/[^/]+/status/\d+`,
	)},
	{Facebook, compileAll(
		`^(?:https?://)?(?:www\.)?facebook\.com/.+/videos/\d+`,
		`^(?:https?://)?(?:www\.)?fb\.watch/[A-Za-z0-9_-]+`,
	)},
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

func compileAll(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+expr))
	}

	return compiled
}

// Detect returns the platform serving the given URL, matching pattern sets
// in priority order. The second return value is false when no set matches.
func Detect(rawURL string) (Platform, bool) {
	rawURL = strings.TrimSpace(rawURL)

	for _, set := range patternSets {
		for _, pattern := range set.patterns {
			if pattern.MatchString(rawURL) {
				return set.platform, true
			}
		}
	}

	return "", false
}

// ExtractAll scans free text for URLs and classifies each one. URLs that do
// not resolve to a known platform are dropped. Output order follows the
// order of occurrence in the input.
func ExtractAll(text string) []Candidate {
	var candidates []Candidate

	for _, rawURL := range urlPattern.FindAllString(text, -1) {
		if p, ok := Detect(rawURL); ok {
			candidates = append(candidates, Candidate{URL: rawURL, Platform: p})
		}
	}

	return candidates
}

// Normalize trims the URL and prepends https:// when the scheme is missing.
func Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "https://" + rawURL
	}

	return rawURL
}
