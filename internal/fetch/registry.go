package fetch

import (
	"context"

	"github.com/mediagrab/mediagrab/internal/logctx"
	"github.com/mediagrab/mediagrab/internal/platform"
)

// wellKnownPlatforms are the ids a generic-capable provider also claims
// when no specialized provider has taken them.
var wellKnownPlatforms = []platform.Platform{
	platform.TikTok,
	platform.Douyin,
	platform.Instagram,
	platform.YouTube,
	platform.Twitter,
	platform.Facebook,
}

// Registry is the platform-id-to-fetcher routing table. It is built once at
// startup by Discover and is read-only afterwards, so lookups need no
// synchronization.
type Registry struct {
	fetchers map[platform.Platform]Fetcher
	generic  Fetcher
}

// Discover builds a Registry from a statically declared provider list,
// applying registration rules in provider-declaration order:
//
//   - each provider registers under its own platform id;
//   - declared aliases bind directly to the provider's fetcher instance,
//     never to another alias;
//   - a generic-capable provider additionally claims every well-known id
//     that is still unclaimed, and serves as the fallback for lookups of
//     ids nobody registered;
//   - conflicts resolve first-registered-wins and are logged, not fatal.
func Discover(ctx context.Context, providers []Provider) *Registry {
	logger := logctx.LoggerFromContext(ctx)

	r := &Registry{fetchers: make(map[platform.Platform]Fetcher)}

	for _, p := range providers {
		r.register(ctx, p.ID, p.Fetcher)

		for _, alias := range p.Aliases {
			r.register(ctx, alias, p.Fetcher)
		}

		if p.Generic {
			if r.generic != nil {
				logger.Warn("generic fallback already registered, keeping first", "platform", p.ID)
				continue
			}

			r.generic = p.Fetcher

			for _, id := range wellKnownPlatforms {
				if _, claimed := r.fetchers[id]; !claimed {
					r.fetchers[id] = p.Fetcher
					logger.Debug("generic fallback claimed platform", "platform", id, "provider", p.ID)
				}
			}
		}
	}

	logger.Info("fetcher discovery completed", "registered", len(r.fetchers), "has_generic", r.generic != nil)

	return r
}

func (r *Registry) register(ctx context.Context, id platform.Platform, f Fetcher) {
	if _, exists := r.fetchers[id]; exists {
		logctx.LoggerFromContext(ctx).Warn("platform already claimed, keeping first registration", "platform", id)
		return
	}

	r.fetchers[id] = f
}

// Lookup resolves a platform id to a fetcher: exact match first, then the
// generic fallback if one was registered. The second return value is false
// when neither exists.
func (r *Registry) Lookup(p platform.Platform) (Fetcher, bool) {
	if f, ok := r.fetchers[p]; ok {
		return f, true
	}

	if r.generic != nil {
		return r.generic, true
	}

	return nil, false
}

// Platforms returns the number of platform ids with a bound fetcher.
func (r *Registry) Platforms() int {
	return len(r.fetchers)
}
