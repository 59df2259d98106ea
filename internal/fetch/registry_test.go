package fetch

import (
	"context"
	"testing"

	"github.com/mediagrab/mediagrab/internal/platform"
)

type stubFetcher struct{ name string }

func (s *stubFetcher) Fetch(ctx context.Context, rawURL, outputDir string) (*Result, error) {
	return &Result{}, nil
}

func TestDiscover_AliasResolvesToSameInstance(t *testing.T) {
	f1 := &stubFetcher{name: "tiktok"}

	r := Discover(context.Background(), []Provider{
		{ID: platform.TikTok, Aliases: []platform.Platform{platform.Douyin}, Fetcher: f1},
	})

	got, ok := r.Lookup(platform.Douyin)
	if !ok {
		t.Fatal("expected douyin alias to resolve")
	}

	if got != f1 {
		t.Error("alias should bind directly to the tiktok fetcher instance")
	}
}

func TestLookup_NoGenericFallback(t *testing.T) {
	r := Discover(context.Background(), []Provider{
		{ID: platform.TikTok, Fetcher: &stubFetcher{name: "tiktok"}},
	})

	if _, ok := r.Lookup(platform.YouTube); ok {
		t.Error("lookup of unregistered platform without fallback should fail")
	}
}

func TestDiscover_GenericClaimsUnclaimed(t *testing.T) {
	tiktok := &stubFetcher{name: "tiktok"}
	generic := &stubFetcher{name: "ytdlp"}

	r := Discover(context.Background(), []Provider{
		{ID: platform.TikTok, Aliases: []platform.Platform{platform.Douyin}, Fetcher: tiktok},
		{ID: platform.Generic, Generic: true, Fetcher: generic},
	})

	// specialized registrations win
	if got, _ := r.Lookup(platform.TikTok); got != tiktok {
		t.Error("tiktok should stay bound to the specialized fetcher")
	}

	// unclaimed well-known ids go to the generic provider
	if got, _ := r.Lookup(platform.YouTube); got != generic {
		t.Error("youtube should be claimed by the generic provider")
	}

	// ids nobody registered still resolve through the fallback
	if got, ok := r.Lookup(platform.Platform("vimeo")); !ok || got != generic {
		t.Error("unknown platform should resolve to the generic fallback")
	}
}

func TestDiscover_ConflictFirstRegisteredWins(t *testing.T) {
	first := &stubFetcher{name: "first"}
	second := &stubFetcher{name: "second"}

	r := Discover(context.Background(), []Provider{
		{ID: platform.TikTok, Fetcher: first},
		{ID: platform.TikTok, Fetcher: second},
	})

	if got, _ := r.Lookup(platform.TikTok); got != first {
		t.Error("first registration should win on conflict")
	}
}

func TestDiscover_SecondGenericIgnored(t *testing.T) {
	first := &stubFetcher{name: "first"}
	second := &stubFetcher{name: "second"}

	r := Discover(context.Background(), []Provider{
		{ID: platform.Generic, Generic: true, Fetcher: first},
		{ID: platform.Platform("other"), Generic: true, Fetcher: second},
	})

	if got, _ := r.Lookup(platform.Platform("unheard-of")); got != first {
		t.Error("first generic provider should keep the fallback slot")
	}
}

func TestLookup_Deterministic(t *testing.T) {
	f1 := &stubFetcher{name: "tiktok"}

	r := Discover(context.Background(), []Provider{
		{ID: platform.TikTok, Aliases: []platform.Platform{platform.Douyin}, Fetcher: f1},
	})

	for i := 0; i < 50; i++ {
		if got, ok := r.Lookup(platform.Douyin); !ok || got != f1 {
			t.Fatalf("iteration %d: lookup changed result", i)
		}
	}
}
