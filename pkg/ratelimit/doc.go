// Package ratelimit paces sweeps that issue several requests in a row, such
// as the catalog parameter probe.
//
// TokenBucket holds a fixed number of tokens and refills them all once the
// refill period has elapsed:
//
//	limiter := ratelimit.FromSettings(cfg.RateLimit)
//	for _, suffix := range suffixes {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	    // issue request
//	}
package ratelimit
