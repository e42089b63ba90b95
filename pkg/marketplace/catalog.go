package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/antzucaro/matchr"

	"imgprobe/pkg/config"
	"imgprobe/pkg/extract"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/lookup"
	"imgprobe/pkg/probe"
	"imgprobe/pkg/ratelimit"
	"imgprobe/pkg/tokenstore"
)

// CatalogProvider is the provider name reported on catalog results
const CatalogProvider = "catalog"

// Excerpt lengths per operation
const (
	ProductExcerpt  = 2000
	VariantsExcerpt = 3000
	V1Excerpt       = 1000
	SearchExcerpt   = 1000
	BrowseExcerpt   = 500
	ProbeExcerpt    = 800
)

const (
	DefaultVariantsPageSize = 50
	DefaultSearchPageSize   = 1
)

// DefaultSuffixes are the query suffixes tried by Probe
var DefaultSuffixes = []string{"", "?includes=media", "?includes=images", "?fields=media,title,brand"}

// imagePaths are the places a catalog response has been seen to carry an image
var imagePaths = []string{
	"media.imageUrl",
	"media.smallImageUrl",
	"media.thumbUrl",
	"imageUrl",
	"image",
	"productAttributes.image",
}

// CatalogOptions configures catalog lookups
type CatalogOptions struct {
	BaseURL  string
	PageSize int
	// Limiter paces Probe sweeps; nil means no pacing
	Limiter ratelimit.Limiter
}

// CatalogOptionsFromConfig derives catalog options from loaded settings
func CatalogOptionsFromConfig(cfg *config.Config) CatalogOptions {
	return CatalogOptions{
		BaseURL:  cfg.Catalog.BaseURL,
		PageSize: cfg.Catalog.PageSize,
		Limiter:  ratelimit.FromSettings(cfg.RateLimit),
	}
}

// Catalog looks up products on the authenticated catalog API
type Catalog struct {
	client *probe.Client
	creds  tokenstore.Source
	opts   CatalogOptions
	logger logger.Logger
}

// NewCatalog creates a Catalog authenticating with creds
func NewCatalog(client *probe.Client, creds tokenstore.Source, opts CatalogOptions, log logger.Logger) *Catalog {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultVariantsPageSize
	}
	return &Catalog{
		client: client,
		creds:  creds,
		opts:   opts,
		logger: log.WithField("provider", CatalogProvider),
	}
}

func (c *Catalog) endpoint(path string) string {
	return strings.TrimRight(c.opts.BaseURL, "/") + path
}

// fetch resolves credentials and issues the request. A nil response means
// res has been failed.
func (c *Catalog) fetch(ctx context.Context, res *lookup.Result, target string) *probe.Response {
	res.URL = target

	cred, err := c.creds.Credential(ctx)
	if err != nil {
		res.Fail(fmt.Errorf("resolve credential: %w", err))
		return nil
	}

	resp, err := c.client.Get(ctx, target, cred.Headers())
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

// pretty excerpts an indented body; raw excerpts the body as sent
func pretty(n int) func([]byte) string {
	return func(body []byte) string { return extract.Pretty(body, n) }
}

func raw(n int) func([]byte) string {
	return func(body []byte) string { return extract.Truncate(string(body), n) }
}

func (c *Catalog) run(ctx context.Context, operation, reference, path string, excerpt func([]byte) string, collect func(*lookup.Result, []byte)) *lookup.Result {
	res := lookup.Begin(CatalogProvider, operation, reference)
	if res.Failed() {
		return c.finish(res)
	}

	resp := c.fetch(ctx, res, c.endpoint(path))
	if resp == nil {
		return c.finish(res)
	}

	res.Excerpt = excerpt(resp.Body)
	if collect != nil {
		collect(res, resp.Body)
	}
	if res.Settle().Status == lookup.StatusNotFound {
		res.Diagnose("message", "No image fields in response")
	}
	return c.finish(res)
}

// Product fetches /v2/catalog/products/{id} with an optional query suffix
// such as "?includes=media".
func (c *Catalog) Product(ctx context.Context, id, query string) *lookup.Result {
	path := "/v2/catalog/products/" + url.PathEscape(id) + normalizeQuery(query)
	return c.run(ctx, "product", id, path, pretty(ProductExcerpt), func(res *lookup.Result, body []byte) {
		collectImages(res, body)
		res.AddField("title", extract.String(body, "title"))
		res.AddField("styleId", extract.String(body, "styleId"))
		res.AddField("urlKey", extract.String(body, "urlKey"))
	})
}

// Variants fetches the variants of a product
func (c *Catalog) Variants(ctx context.Context, id string, pageSize int) *lookup.Result {
	if pageSize <= 0 {
		pageSize = c.opts.PageSize
	}
	path := fmt.Sprintf("/v2/catalog/products/%s/variants?pageSize=%d", url.PathEscape(id), pageSize)
	return c.run(ctx, "variants", id, path, pretty(VariantsExcerpt), func(res *lookup.Result, body []byte) {
		n := extract.Len(body)
		for i := 0; i < n; i++ {
			collectImages(res, body, i)
		}
		res.AddField("variants", fmt.Sprint(n))
	})
}

// Search queries the catalog and ranks the returned products by how closely
// their style code or title matches q.
func (c *Catalog) Search(ctx context.Context, q string, pageSize int) *lookup.Result {
	if pageSize <= 0 {
		pageSize = DefaultSearchPageSize
	}
	path := fmt.Sprintf("/v2/catalog/search?query=%s&pageSize=%d", url.QueryEscape(q), pageSize)
	return c.run(ctx, "search", q, path, pretty(SearchExcerpt), func(res *lookup.Result, body []byte) {
		n := extract.Len(body, "products")
		for i := 0; i < n; i++ {
			collectImages(res, body, "products", i)
		}
		if best, score := bestMatch(body, q); best != "" {
			res.AddField("bestMatch", best)
			res.AddField("similarity", fmt.Sprintf("%.3f", score))
		}
	})
}

// Browse queries /v2/browse; its excerpt is the raw body
func (c *Catalog) Browse(ctx context.Context, q string) *lookup.Result {
	return c.run(ctx, "browse", q, "/v2/browse?query="+url.QueryEscape(q), raw(BrowseExcerpt), func(res *lookup.Result, body []byte) {
		collectImages(res, body)
	})
}

// ProductV1 fetches /v1/products/{id}
func (c *Catalog) ProductV1(ctx context.Context, id string) *lookup.Result {
	return c.run(ctx, "v1", id, "/v1/products/"+url.PathEscape(id), pretty(V1Excerpt), func(res *lookup.Result, body []byte) {
		collectImages(res, body)
		collectImages(res, body, "Product")
	})
}

func (c *Catalog) finish(res *lookup.Result) *lookup.Result {
	logger.LogLookup(c.logger, res.Provider, res.Operation, res.Reference, string(res.Status), len(res.Images))
	return res
}

// collectImages adds every known image path found under base. The first
// hit becomes the primary URL.
func collectImages(res *lookup.Result, body []byte, base ...interface{}) {
	for _, p := range imagePaths {
		path := append(append([]interface{}{}, base...), extract.Path(p)...)
		s := extract.String(body, path...)
		if s == "" {
			continue
		}
		if res.Primary == "" {
			res.Primary = s
		}
		res.AddImage(s)
	}
}

// bestMatch returns the product label closest to q by Jaro-Winkler similarity
func bestMatch(body []byte, q string) (string, float64) {
	var best string
	var bestScore float64
	needle := strings.ToLower(q)

	for i := 0; i < extract.Len(body, "products"); i++ {
		for _, field := range []string{"styleId", "title"} {
			label := extract.String(body, "products", i, field)
			if label == "" {
				continue
			}
			score := matchr.JaroWinkler(needle, strings.ToLower(label), false)
			if score > bestScore {
				best, bestScore = label, score
			}
		}
	}
	return best, bestScore
}

func normalizeQuery(q string) string {
	if q == "" || strings.HasPrefix(q, "?") {
		return q
	}
	return "?" + q
}
