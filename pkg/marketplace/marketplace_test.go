package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgprobe/internal/testserver"
	errs "imgprobe/pkg/errors"
	"imgprobe/pkg/extract"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/lookup"
	"imgprobe/pkg/probe"
	"imgprobe/pkg/ratelimit"
	"imgprobe/pkg/tokenstore"
)

func newClient(log logger.Logger) *probe.Client {
	return probe.NewClient(probe.Options{Timeout: 5 * time.Second}, log)
}

func newPages(srv *testserver.Server, limit int) (*Pages, *logger.TestLogger) {
	log := logger.NewTestLogger()
	return NewPages(newClient(log), PagesOptions{
		BaseURL:   srv.URL(),
		ImageHost: extract.DefaultImageHost,
		Limit:     limit,
	}, log), log
}

func browser(t *testing.T) probe.Profile {
	t.Helper()
	p, err := probe.LookupProfile(probe.ProfileBrowser)
	require.NoError(t, err)
	return p
}

func TestPagesLookupFound(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetPage("air-jordan-4-retro-white-midnight-navy", testserver.ProductPage(
		"Air Jordan 4",
		"https://images.stockx.com/images/og.jpg",
		"https://images.stockx.com/images/b.jpg",
		"https://images.stockx.com/images/a.jpg",
		"https://images.stockx.com/images/a.jpg",
	))

	pages, log := newPages(srv, 5)
	res := pages.Lookup(context.Background(), "air-jordan-4-retro-white-midnight-navy", browser(t))

	assert.Equal(t, lookup.StatusFound, res.Status)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "https://images.stockx.com/images/og.jpg", res.Primary)
	assert.Equal(t, []string{
		"https://images.stockx.com/images/a.jpg",
		"https://images.stockx.com/images/b.jpg",
		"https://images.stockx.com/images/og.jpg",
	}, res.Images)
	assert.Equal(t, "browser", res.Field("profile"))
	assert.Empty(t, res.Diagnostics)

	req := srv.LastRequest()
	assert.Equal(t, "/air-jordan-4-retro-white-midnight-navy", req.Path)
	assert.Contains(t, req.Header.Get("User-Agent"), "Windows NT 10.0")
	assert.True(t, log.HasMessage("lookup finished"))
}

func TestPagesLookupTruncates(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	var imgs []string
	for i := 0; i < 8; i++ {
		imgs = append(imgs, fmt.Sprintf("https://images.stockx.com/images/%d.jpg", i))
	}
	srv.SetPage("many", testserver.ProductPage("Many", "", imgs...))

	pages, _ := newPages(srv, 5)
	res := pages.Lookup(context.Background(), "many", browser(t))
	assert.Len(t, res.Images, 5)
	assert.Empty(t, res.Primary)
	assert.True(t, res.Found())
}

func TestPagesLookupNotFound(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetPage("bare", "<html><head><title>Just a moment...</title></head><body></body></html>")

	pages, _ := newPages(srv, 5)
	res := pages.Lookup(context.Background(), "bare", browser(t))

	assert.Equal(t, lookup.StatusNotFound, res.Status)
	assert.Empty(t, res.Images)
	assert.Equal(t, "No images found in HTML", res.Diagnostic("message"))
	assert.Equal(t, "Just a moment...", res.Diagnostic("title"))
	assert.Equal(t, "70", res.Diagnostic("length"))
}

func TestPagesLookupNon200SkipsExtraction(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetPage("blocked", testserver.ProductPage("x", "https://images.stockx.com/images/og.jpg"))
	srv.SetError("/blocked", http.StatusForbidden)

	pages, _ := newPages(srv, 5)
	res := pages.Lookup(context.Background(), "blocked", browser(t))

	assert.Equal(t, lookup.StatusFailed, res.Status)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Empty(t, res.Primary)
	assert.Empty(t, res.Images)
	assert.Equal(t, "403", res.Diagnostic("status"))
	assert.Equal(t, "Error 403", res.Diagnostic("title"))
	assert.Equal(t, errs.ErrorTypeAuth, res.ErrorType())
}

func TestPagesLookupTransportFailure(t *testing.T) {
	srv := testserver.New()
	base := srv.URL()
	srv.Close()

	log := logger.NewTestLogger()
	pages := NewPages(newClient(log), PagesOptions{BaseURL: base, Limit: 5}, log)
	res := pages.Lookup(context.Background(), "gone", browser(t))

	assert.True(t, res.Failed())
	assert.Equal(t, errs.ErrorTypeNetwork, res.ErrorType())
	assert.Equal(t, base+"/gone", res.URL)
}

func TestPagesLookupEmptySlug(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	pages, _ := newPages(srv, 5)
	res := pages.Lookup(context.Background(), "", browser(t))
	assert.ErrorIs(t, res.Err, lookup.ErrEmptyReference)
	assert.Equal(t, 0, srv.RequestCount())
}

func TestPageURL(t *testing.T) {
	pages := NewPages(nil, PagesOptions{BaseURL: "https://stockx.com/"}, logger.NewNopLogger())
	assert.Equal(t, "https://stockx.com/slug", pages.PageURL("/slug"))
	assert.Equal(t, "https://example.com/p", pages.PageURL("https://example.com/p"))
}

const productBody = `{
	"productId": "4a151ea9",
	"title": "Nike Dunk Low Retro White Black Panda",
	"styleId": "DD1391-100",
	"urlKey": "nike-dunk-low-retro-white-black-2021",
	"media": {"imageUrl": "https://images.stockx.com/images/panda.jpg", "thumbUrl": "https://images.stockx.com/images/panda-thumb.jpg"}
}`

func newCatalog(srv *testserver.Server, creds tokenstore.Source, limiter ratelimit.Limiter) *Catalog {
	log := logger.NewTestLogger()
	return NewCatalog(newClient(log), creds, CatalogOptions{BaseURL: srv.URL(), Limiter: limiter}, log)
}

func staticCreds() tokenstore.Source {
	return tokenstore.Static{Token: testserver.Token, APIKey: testserver.APIKey}
}

func TestCatalogProduct(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v2/catalog/products/4a151ea9", productBody)

	res := newCatalog(srv, staticCreds(), nil).Product(context.Background(), "4a151ea9", "")

	require.Equal(t, lookup.StatusFound, res.Status)
	assert.Equal(t, "https://images.stockx.com/images/panda.jpg", res.Primary)
	assert.Equal(t, []string{
		"https://images.stockx.com/images/panda.jpg",
		"https://images.stockx.com/images/panda-thumb.jpg",
	}, res.Images)
	assert.Equal(t, "DD1391-100", res.Field("styleId"))
	assert.Contains(t, res.Excerpt, `"styleId": "DD1391-100"`)

	req := srv.LastRequest()
	assert.Equal(t, "Bearer "+testserver.Token, req.Header.Get("Authorization"))
	assert.Equal(t, testserver.APIKey, req.Header.Get("x-api-key"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestCatalogProductQuerySuffix(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v2/catalog/products/p1?includes=media", productBody)

	res := newCatalog(srv, staticCreds(), nil).Product(context.Background(), "p1", "includes=media")
	assert.True(t, res.Found())
	assert.Equal(t, "media", srv.LastRequest().Query.Get("includes"))
}

func TestCatalogProductWithoutImages(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v2/catalog/products/p2", `{"productId":"p2","title":"No Media","productAttributes":{"color":"white"}}`)

	res := newCatalog(srv, staticCreds(), nil).Product(context.Background(), "p2", "")
	assert.Equal(t, lookup.StatusNotFound, res.Status)
	assert.Equal(t, "No Media", res.Field("title"))
	assert.Equal(t, "No image fields in response", res.Diagnostic("message"))
	assert.Contains(t, res.Excerpt, `"productAttributes"`)
}

func TestCatalogProductNotFound(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	res := newCatalog(srv, staticCreds(), nil).Product(context.Background(), "missing", "")
	assert.True(t, res.Failed())
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, errs.ErrorTypeNotFound, res.ErrorType())
	assert.Contains(t, res.Diagnostic("body"), "Not Found")
	assert.Empty(t, res.Excerpt)
}

func TestCatalogCredentialFailure(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	res := newCatalog(srv, tokenstore.Static{Token: "t"}, nil).Product(context.Background(), "p", "")
	assert.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, tokenstore.ErrMissingAPIKey)
	assert.Equal(t, 0, srv.RequestCount())
}

func TestCatalogWithResolver(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v2/catalog/products/abc", productBody)

	log := logger.NewTestLogger()
	client := newClient(log)
	resolver := tokenstore.NewResolver(client, tokenstore.Options{
		BaseURL:    srv.URL(),
		ServiceKey: testserver.ServiceKey,
		Table:      "stockx_tokens",
		Field:      "access_token",
		APIKey:     testserver.APIKey,
	}, log)

	res := NewCatalog(client, resolver, CatalogOptions{BaseURL: srv.URL()}, log).Product(context.Background(), "abc", "")
	assert.True(t, res.Found())
	assert.Equal(t, 2, srv.RequestCount())
}

func TestCatalogVariants(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v2/catalog/products/abc/variants?pageSize=50", `[
		{"variantId":"v1","variantValue":"9"},
		{"variantId":"v2","variantValue":"10","imageUrl":"https://images.stockx.com/images/v2.jpg"}
	]`)

	res := newCatalog(srv, staticCreds(), nil).Variants(context.Background(), "abc", 0)
	assert.True(t, res.Found())
	assert.Equal(t, "2", res.Field("variants"))
	assert.Equal(t, []string{"https://images.stockx.com/images/v2.jpg"}, res.Images)
	assert.Equal(t, "50", srv.LastRequest().Query.Get("pageSize"))
}

func TestCatalogSearchBestMatch(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v2/catalog/search", `{"count":2,"products":[
		{"title":"Jordan 1 Low","styleId":"553558-140"},
		{"title":"Nike Dunk Low Retro","styleId":"DH6927-140","productAttributes":{"image":"https://images.stockx.com/images/dunk.jpg"}}
	]}`)

	res := newCatalog(srv, staticCreds(), nil).Search(context.Background(), "DH6927-140", 0)
	assert.True(t, res.Found())
	assert.Equal(t, "DH6927-140", res.Field("bestMatch"))
	assert.Equal(t, "1.000", res.Field("similarity"))
	assert.Equal(t, []string{"https://images.stockx.com/images/dunk.jpg"}, res.Images)

	req := srv.LastRequest()
	assert.Equal(t, "DH6927-140", req.Query.Get("query"))
	assert.Equal(t, "1", req.Query.Get("pageSize"))
}

func TestCatalogSearchEmpty(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v2/catalog/search", `{"count":0,"products":[]}`)

	res := newCatalog(srv, staticCreds(), nil).Search(context.Background(), "nothing", 5)
	assert.Equal(t, lookup.StatusNotFound, res.Status)
	assert.Empty(t, res.Field("bestMatch"))
}

func TestCatalogBrowseRawExcerpt(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	long := `{"results":"` + strings.Repeat("y", 900) + `"}`
	srv.SetCatalog("/v2/browse", long)

	res := newCatalog(srv, staticCreds(), nil).Browse(context.Background(), "DH6927-140")
	assert.Equal(t, lookup.StatusNotFound, res.Status)
	assert.Equal(t, long[:BrowseExcerpt], res.Excerpt)
}

func TestCatalogV1(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v1/products/abc", `{"Product":{"media":{"imageUrl":"https://images.stockx.com/images/v1.jpg"}}}`)

	res := newCatalog(srv, staticCreds(), nil).ProductV1(context.Background(), "abc")
	assert.True(t, res.Found())
	assert.Equal(t, "https://images.stockx.com/images/v1.jpg", res.Primary)
}

func TestCatalogProbe(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCatalog("/v2/catalog/products/abc", `{"productId":"abc","title":"Plain"}`)
	srv.SetCatalog("/v2/catalog/products/abc?includes=media", productBody)
	srv.SetCatalog("/v2/catalog/products/abc?includes=images", `{"productId":"abc","Images":[]}`)

	catalog := newCatalog(srv, staticCreds(), ratelimit.NewTokenBucket(1, time.Millisecond))
	outcomes, err := catalog.Probe(context.Background(), "abc", []string{"", "?includes=media", "includes=images"})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "(none)", outcomes[0].Label())
	assert.Equal(t, 200, outcomes[0].StatusCode)
	assert.False(t, outcomes[0].HasMedia)
	assert.False(t, outcomes[0].HasImage)
	assert.Empty(t, outcomes[0].Excerpt)

	assert.Equal(t, "?includes=media", outcomes[1].Label())
	assert.True(t, outcomes[1].HasMedia)
	assert.True(t, outcomes[1].HasImage)
	assert.Contains(t, outcomes[1].Excerpt, `"media": {`)

	assert.Equal(t, "?includes=images", outcomes[2].Suffix)
	assert.False(t, outcomes[2].HasMedia)
	assert.True(t, outcomes[2].HasImage)

	assert.Equal(t, 3, srv.RequestCount())
}

func TestCatalogProbeDefaults(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	outcomes, err := newCatalog(srv, staticCreds(), nil).Probe(context.Background(), "missing", nil)
	require.NoError(t, err)
	require.Len(t, outcomes, len(DefaultSuffixes))
	for _, o := range outcomes {
		assert.Equal(t, http.StatusNotFound, o.StatusCode)
	}
}

func TestCatalogProbeCredentialFailure(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	_, err := newCatalog(srv, tokenstore.Static{}, nil).Probe(context.Background(), "abc", nil)
	assert.True(t, errors.Is(err, tokenstore.ErrMissingAPIKey))

	_, err = newCatalog(srv, staticCreds(), nil).Probe(context.Background(), " ", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, srv.RequestCount())
}

func TestCatalogProbeCancelled(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	limiter := ratelimit.NewTokenBucket(1, time.Hour)
	catalog := newCatalog(srv, staticCreds(), limiter)

	cancel()
	outcomes, err := catalog.Probe(ctx, "abc", []string{"", "?includes=media"})
	require.Error(t, err)
	assert.Len(t, outcomes, 1)
}
