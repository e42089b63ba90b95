// Package probe issues the single outbound GET behind every lookup.
//
// A Client wraps resty with a timeout, optional cloudflare bypass transport
// and an optional raw dump of each exchange. Requests carry a header
// Profile that decides how the caller presents itself:
//
//	p, _ := probe.LookupProfile("googlebot")
//	resp, err := client.Get(ctx, "https://stockx.com/air-jordan-1", p.Headers)
//	if err != nil {
//	    // transport failure, typed errors.ErrorTypeNetwork
//	}
//	if !resp.OK() {
//	    err = probe.Classify(resp)
//	}
//
// Non-2xx statuses are returned as responses so callers can still report
// diagnostics from the body.
package probe
