package source

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to an underlying source.
type RateLimited struct {
	next    Source
	limiter *rate.Limiter
}

var _ Source = (*RateLimited)(nil)

// NewRateLimited allows rps requests per second with the given burst.
// A non-positive rps returns next unchanged.
func NewRateLimited(next Source, rps float64, burst int) Source {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Name reports the wrapped source's name.
func (r *RateLimited) Name() string {
	return r.next.Name()
}

// FetchPage waits for a token, then delegates. A wait that cannot complete is ErrUnavailable.
func (r *RateLimited) FetchPage(ctx context.Context, req Request) (Page, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Page{}, Unavailable(r.Name(), err)
	}
	return r.next.FetchPage(ctx, req)
}
