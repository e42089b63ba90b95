// Package retry runs an operation with a bounded number of attempts and a
// pluggable backoff between them.
//
// Lookups are made once by default. Raising retry.max_attempts lets
// transient failures (network errors, 429 and 5xx responses) be retried:
//
//	cfg := retry.FromSettings(settings.Retry, log)
//	resp, err := retry.DoWithResult(ctx, func(ctx context.Context) (*probe.Response, error) {
//		return client.fetch(ctx, url)
//	}, cfg)
//
// Errors are classified through imgprobe/pkg/errors; untyped errors and
// context cancellation are never retried.
package retry
