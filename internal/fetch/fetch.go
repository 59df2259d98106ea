// Package fetch defines the platform fetcher boundary and the routing
// registry that binds platform ids to fetcher implementations.
package fetch

import (
	"context"

	"github.com/mediagrab/mediagrab/internal/platform"
)

// Result is what a fetcher hands back after a successful invocation.
type Result struct {
	// Files are the absolute paths of everything produced in the output
	// directory, in the order the fetcher wrote them.
	Files []string

	// Metadata carries platform fields such as "title" or "caption" used
	// to build delivery captions.
	Metadata map[string]string
}

// Fetcher retrieves media for a single URL into outputDir. Implementations
// must scope any network resources they open to the one invocation and must
// report failures as errors rather than panicking.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, outputDir string) (*Result, error)
}

// Provider declares a fetcher implementation to Discover. Providers are
// plain data: which platform id the fetcher natively serves, which alias
// ids resolve to the same instance, and whether it may serve as the
// generic fallback for everything unclaimed.
type Provider struct {
	ID      platform.Platform
	Aliases []platform.Platform
	Generic bool
	Fetcher Fetcher
}
