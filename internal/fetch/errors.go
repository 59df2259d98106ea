package fetch

import "fmt"

// RoutingError reports that a platform resolved from a URL has no fetcher
// bound to it, neither a specific one nor a generic fallback.
type RoutingError struct {
	Platform string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no fetcher registered for platform %q", e.Platform)
}

// FetchError reports that a fetcher was invoked and failed. Reason is the
// user-presentable failure description recorded to the ledger.
type FetchError struct {
	Platform string
	URL      string
	Reason   string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s url %s: %s", e.Platform, e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
