package manufacturer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"imgprobe/pkg/config"
	"imgprobe/pkg/extract"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/lookup"
	"imgprobe/pkg/probe"
)

// Provider is the provider name reported on feed results
const Provider = "manufacturer"

// Feed sources accepted by Lookup
const (
	SourceRollup  = "rollup"
	SourceThreads = "threads"
	SourceAll     = "all"
)

// Options configures feed lookups
type Options struct {
	BaseURL     string
	ChannelID   string
	Marketplace string
	Language    string
	Country     string
	AnonymousID string
	CallerID    string
}

// OptionsFromConfig derives feed options from loaded settings
func OptionsFromConfig(cfg *config.Config) Options {
	m := cfg.Manufacturer
	return Options{
		BaseURL:     m.BaseURL,
		ChannelID:   m.ChannelID,
		Marketplace: m.Marketplace,
		Language:    m.Language,
		Country:     m.Country,
		AnonymousID: m.AnonymousID,
		CallerID:    m.CallerID,
	}
}

// Feed looks up product images on the manufacturer's product feeds by style code
type Feed struct {
	client  *probe.Client
	opts    Options
	profile probe.Profile
	logger  logger.Logger
}

// NewFeed creates a Feed
func NewFeed(client *probe.Client, opts Options, log logger.Logger) *Feed {
	if log == nil {
		log = logger.GetLogger()
	}
	profile, _ := probe.LookupProfile(probe.ProfileGeneric)
	return &Feed{
		client:  client,
		opts:    opts,
		profile: profile,
		logger:  log.WithField("provider", Provider),
	}
}

func (f *Feed) base() string {
	return strings.TrimRight(f.opts.BaseURL, "/")
}

// RollupURL builds the browse request for style. The rollup query travels
// encoded inside the endpoint parameter.
func (f *Feed) RollupURL(style string) string {
	endpoint := fmt.Sprintf(
		"/product_feed/rollup_threads/v2?filter=marketplace(%s)&filter=language(%s)&filter=employeePrice(true)&searchTerms=%s&anchor=0&count=1&consumerChannelId=%s",
		f.opts.Marketplace, f.opts.Language, url.QueryEscape(style), f.opts.ChannelID)

	q := url.Values{}
	q.Set("queryid", "products")
	q.Set("anonymousId", f.opts.AnonymousID)
	q.Set("country", f.opts.Country)
	q.Set("endpoint", endpoint)
	return f.base() + "/cic/browse/v2?" + q.Encode()
}

// ThreadsURL builds the threads feed request for style
func (f *Feed) ThreadsURL(style string) string {
	return fmt.Sprintf(
		"%s/product_feed/threads/v3/?filter=marketplace(%s)&filter=language(%s)&filter=channelId(%s)&filter=exclusiveAccess(true,false)&search=%s&count=1",
		f.base(), f.opts.Marketplace, f.opts.Language, f.opts.ChannelID, url.QueryEscape(style))
}

func (f *Feed) fetch(ctx context.Context, res *lookup.Result, target string, extra map[string]string) *probe.Response {
	res.URL = target
	resp, err := f.client.Get(ctx, target, f.profile.With(extra))
	if err != nil {
		res.Fail(err)
		return nil
	}
	if !resp.OK() {
		lookup.FailedResponse(res, resp)
		return nil
	}
	res.Attach(resp)
	return resp
}

// Rollup searches the rollup browse feed and reads the first product's
// square, portrait, per-node and cover images.
func (f *Feed) Rollup(ctx context.Context, style string) *lookup.Result {
	res := lookup.Begin(Provider, SourceRollup, style)
	if res.Failed() {
		return f.finish(res)
	}

	resp := f.fetch(ctx, res, f.RollupURL(style), nil)
	if resp == nil {
		return f.finish(res)
	}

	body := resp.Body
	objects := []interface{}{"data", "products", "objects"}
	if extract.Len(body, objects...) == 0 {
		res.Settle()
		res.Diagnose("message", "No products found")
		res.Diagnostics = append(res.Diagnostics, lookup.JSONFallback(body, lookup.DefaultExcerpt)...)
		return f.finish(res)
	}

	product := append(objects, 0)
	at := func(path string) []interface{} {
		return append(append([]interface{}{}, product...), extract.Path(path)...)
	}

	squarish := extract.String(body, at("images.squarishURL")...)
	portrait := extract.String(body, at("images.portraitURL")...)
	cover := extract.String(body, at("publishedContent.properties.coverCard.properties.coverImage.url")...)

	res.AddField("squarishURL", squarish)
	res.AddField("portraitURL", portrait)
	res.AddField("coverImage", cover)
	res.Primary = squarish

	res.AddImage(squarish)
	res.AddImage(portrait)
	for _, img := range extract.Strings(body, at("productInfo"), "imageUrl") {
		res.AddField("productInfo imageUrl", img)
		res.AddImage(img)
	}
	res.AddImage(cover)

	if res.Settle().Status == lookup.StatusNotFound {
		res.Diagnose("message", "No images on product")
	}
	return f.finish(res)
}

// Threads searches the threads feed and reads the square cover image of
// every returned object.
func (f *Feed) Threads(ctx context.Context, style string) *lookup.Result {
	res := lookup.Begin(Provider, SourceThreads, style)
	if res.Failed() {
		return f.finish(res)
	}

	resp := f.fetch(ctx, res, f.ThreadsURL(style), map[string]string{
		"nike-api-caller-id": f.opts.CallerID,
	})
	if resp == nil {
		return f.finish(res)
	}

	body := resp.Body
	count := extract.Len(body, "objects")
	if count == 0 {
		res.Settle()
		res.Diagnose("message", "No products found")
		res.Diagnostics = append(res.Diagnostics, lookup.JSONFallback(body, lookup.DefaultExcerpt)...)
		return f.finish(res)
	}

	for i := 0; i < count; i++ {
		sq := extract.String(body, "objects", i, "publishedContent", "properties", "coverCard", "properties", "squarish", "url")
		res.AddField("squarish", sq)
		res.AddImage(sq)
	}

	if res.Settle().Status == lookup.StatusNotFound {
		res.Diagnose("message", "No images on product")
	}
	return f.finish(res)
}

// Lookup runs the named source: rollup, threads, or all for both in order
func (f *Feed) Lookup(ctx context.Context, style, source string) ([]*lookup.Result, error) {
	switch strings.ToLower(source) {
	case SourceRollup:
		return []*lookup.Result{f.Rollup(ctx, style)}, nil
	case SourceThreads:
		return []*lookup.Result{f.Threads(ctx, style)}, nil
	case "", SourceAll:
		return []*lookup.Result{f.Rollup(ctx, style), f.Threads(ctx, style)}, nil
	default:
		return nil, fmt.Errorf("unknown feed source %q (valid: all, rollup, threads)", source)
	}
}

func (f *Feed) finish(res *lookup.Result) *lookup.Result {
	logger.LogLookup(f.logger, res.Provider, res.Operation, res.Reference, string(res.Status), len(res.Images))
	return res
}
