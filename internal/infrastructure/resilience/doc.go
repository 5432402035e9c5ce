// Package resilience guards calls to external systems with a circuit
// breaker (sony/gobreaker) and exponential-backoff retries
// (cenkalti/backoff/v4).
//
//	breaker := resilience.NewBreaker(resilience.BreakerConfig{Name: "home-assistant"}, logger)
//	err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
//	    return breaker.Do(ctx, func(ctx context.Context) error {
//	        return client.Ping(ctx)
//	    })
//	})
//
// Retry stops early on errors wrapped with Permanent and on ErrCircuitOpen.
package resilience
