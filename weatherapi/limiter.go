package weatherapi

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedSearcher wraps a Searcher with a client-side token bucket so
// bursts of live-search traffic cannot flood the geocoding endpoint.
type RateLimitedSearcher struct {
	inner   Searcher
	limiter *rate.Limiter
}

// NewRateLimitedSearcher allows rps search calls per second with the given
// burst headroom.
func NewRateLimitedSearcher(inner Searcher, rps float64, burst int) *RateLimitedSearcher {
	return &RateLimitedSearcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Search waits for a token and delegates to the wrapped Searcher. A
// context cancelled while waiting surfaces as a *NetworkError.
func (s *RateLimitedSearcher) Search(ctx context.Context, query string) ([]Place, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Operation: "search rate limit", Err: err}
	}
	return s.inner.Search(ctx, query)
}
