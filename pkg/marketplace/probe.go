package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"imgprobe/pkg/extract"
)

// ProbeOutcome is the result of one query suffix tried against a product
type ProbeOutcome struct {
	Suffix     string `json:"suffix"`
	StatusCode int    `json:"status_code"`
	HasMedia   bool   `json:"has_media"`
	HasImage   bool   `json:"has_image"`
	Excerpt    string `json:"excerpt,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Label returns the suffix, or "(none)" for the bare product request
func (o ProbeOutcome) Label() string {
	if o.Suffix == "" {
		return "(none)"
	}
	return o.Suffix
}

// Probe requests the product once per query suffix, one at a time, and
// reports whether each response mentions media or images. A credential
// failure stops the sweep before any request is sent.
func (c *Catalog) Probe(ctx context.Context, id string, suffixes []string) ([]ProbeOutcome, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("probe: product reference is empty")
	}
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}

	cred, err := c.creds.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve credential: %w", err)
	}
	headers := cred.Headers()

	outcomes := make([]ProbeOutcome, 0, len(suffixes))
	for _, suffix := range suffixes {
		if c.opts.Limiter != nil {
			if err := c.opts.Limiter.Wait(ctx); err != nil {
				return outcomes, err
			}
		}

		suffix = normalizeQuery(suffix)
		outcome := ProbeOutcome{Suffix: suffix}
		resp, err := c.client.Get(ctx, c.endpoint("/v2/catalog/products/"+url.PathEscape(id)+suffix), headers)
		if err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		body := resp.Text()
		outcome.StatusCode = resp.StatusCode
		outcome.HasMedia = strings.Contains(body, "media")
		outcome.HasImage = strings.Contains(strings.ToLower(body), "image")
		if outcome.HasMedia || outcome.HasImage {
			outcome.Excerpt = extract.Pretty(resp.Body, ProbeExcerpt)
		}

		c.logger.DebugWithFields("probe finished", map[string]interface{}{
			"suffix":      outcome.Label(),
			"status_code": outcome.StatusCode,
			"has_media":   outcome.HasMedia,
			"has_image":   outcome.HasImage,
		})
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}
