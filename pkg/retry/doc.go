// Package retry provides a bounded, iterative retry loop with pluggable
// backoff strategies.
//
// The harvest path retries HTTP 429 responses on the same cursor after a
// random 60-90 second wait (JitterBackoff). The mutation path waits a fixed
// five minutes per 429 (ConstantBackoff). Transient transport failures use
// ExponentialBackoff. Waits go through an injectable Sleeper so tests run
// without real delays.
//
//	cfg := retry.RateLimitConfig(ctx, 6, &retry.ConstantBackoff{Delay: 5 * time.Minute})
//	err := retry.Do(func() error { return client.Unfollow(ctx, id) }, cfg)
//	if errors.Is(err, retry.ErrExhausted) { ... }
package retry
