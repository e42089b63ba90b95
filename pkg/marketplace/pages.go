package marketplace

import (
	"context"
	"strings"

	"imgprobe/pkg/config"
	"imgprobe/pkg/extract"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/lookup"
	"imgprobe/pkg/probe"
)

// Provider is the provider name reported on marketplace results
const Provider = "marketplace"

// PagesOptions configures product page lookups
type PagesOptions struct {
	BaseURL   string
	ImageHost string
	// Limit caps the host image list; zero or less keeps everything
	Limit int
}

// PagesOptionsFromConfig derives page options from loaded settings
func PagesOptionsFromConfig(cfg *config.Config) PagesOptions {
	return PagesOptions{
		BaseURL:   cfg.Marketplace.BaseURL,
		ImageHost: cfg.Marketplace.ImageHost,
		Limit:     cfg.Marketplace.ImageLimit,
	}
}

// Pages looks up image URLs on marketplace product pages
type Pages struct {
	client *probe.Client
	opts   PagesOptions
	logger logger.Logger
}

// NewPages creates a Pages
func NewPages(client *probe.Client, opts PagesOptions, log logger.Logger) *Pages {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.ImageHost == "" {
		opts.ImageHost = extract.DefaultImageHost
	}
	return &Pages{
		client: client,
		opts:   opts,
		logger: log.WithField("provider", Provider),
	}
}

// PageURL returns the product page address for slug. Absolute URLs are
// used unchanged.
func (p *Pages) PageURL(slug string) string {
	if strings.HasPrefix(slug, "http://") || strings.HasPrefix(slug, "https://") {
		return slug
	}
	return strings.TrimRight(p.opts.BaseURL, "/") + "/" + strings.TrimLeft(slug, "/")
}

// Lookup fetches the product page for slug with the given header profile and
// extracts the og:image URL and the image-host URLs it references.
func (p *Pages) Lookup(ctx context.Context, slug string, profile probe.Profile) *lookup.Result {
	res := lookup.Begin(Provider, "page", slug)
	if res.Failed() {
		return res
	}
	res.AddField("profile", profile.Name)

	resp, err := p.client.Get(ctx, p.PageURL(slug), profile.Headers)
	if err != nil {
		res.URL = p.PageURL(slug)
		return p.finish(res.Fail(err))
	}
	if !resp.OK() {
		return p.finish(lookup.FailedResponse(res, resp))
	}
	res.Attach(resp)

	html := resp.Text()
	found := extract.HTML(html, p.opts.ImageHost, p.opts.Limit)
	res.Primary = found.MetaImage
	for _, img := range found.Images {
		res.AddImage(img)
	}

	if res.Settle().Status == lookup.StatusNotFound {
		res.Diagnose("message", "No images found in HTML")
		res.Diagnostics = append(res.Diagnostics, lookup.HTMLFallback(html)...)
	}
	return p.finish(res)
}

func (p *Pages) finish(res *lookup.Result) *lookup.Result {
	logger.LogLookup(p.logger, res.Provider, res.Operation, res.Reference, string(res.Status), len(res.Images))
	return res
}
