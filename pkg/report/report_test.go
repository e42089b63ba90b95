package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgprobe/pkg/auth"
	"imgprobe/pkg/inspect"
	"imgprobe/pkg/lookup"
	"imgprobe/pkg/marketplace"
	"imgprobe/pkg/ui"
)

func newReporter(t *testing.T, format string) (*Reporter, *bytes.Buffer) {
	t.Helper()
	ui.SetColor(false)
	t.Cleanup(func() { ui.SetColor(true) })

	var buf bytes.Buffer
	r, err := New(&buf, format)
	require.NoError(t, err)
	return r, &buf
}

func pageResult() *lookup.Result {
	res := lookup.New("marketplace", "page", "air-jordan-4")
	res.StatusCode = 200
	res.Primary = "https://images.stockx.com/images/og.jpg"
	res.AddField("profile", "googlebot")
	res.AddImage("https://images.stockx.com/images/a.jpg")
	res.AddImage("https://images.stockx.com/images/og.jpg")
	return res.Settle()
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml")
	assert.Error(t, err)

	r, err := New(&bytes.Buffer{}, "")
	require.NoError(t, err)
	assert.Equal(t, FormatText, r.Format())
}

func TestTextPageFound(t *testing.T) {
	r, buf := newReporter(t, FormatText)
	require.NoError(t, r.Result(pageResult()))

	assert.Equal(t, strings.Join([]string{
		"=== marketplace page: air-jordan-4 ===",
		"Status: 200",
		"OG Image: https://images.stockx.com/images/og.jpg",
		"IMG: https://images.stockx.com/images/a.jpg",
		"IMG: https://images.stockx.com/images/og.jpg",
		"",
	}, "\n"), buf.String())
}

func TestTextPageNotFound(t *testing.T) {
	r, buf := newReporter(t, FormatText)

	res := lookup.New("marketplace", "page", "bare")
	res.StatusCode = 200
	res.Settle()
	res.Diagnose("message", "No images found in HTML")
	res.Diagnostics = append(res.Diagnostics, lookup.HTMLFallback("<title>Just a moment...</title>")...)
	require.NoError(t, r.Result(res))

	out := buf.String()
	assert.Contains(t, out, "Status: 200\nNo images found in HTML\nHTML length: 31\nTitle: Just a moment...\n")
	assert.NotContains(t, out, "IMG:")
}

func TestTextFailed(t *testing.T) {
	r, buf := newReporter(t, FormatText)

	res := lookup.New("catalog", "v1", "abc")
	res.StatusCode = 404
	res.Fail(errors.New("not_found error (code 404): resource not found"))
	res.Diagnose("status", "404")
	res.Diagnostics = append(res.Diagnostics, lookup.JSONFallback([]byte(`{"message":"Not Found"}`), 500)...)
	require.NoError(t, r.Result(res))

	out := buf.String()
	assert.Contains(t, out, "v1 status: 404\n")
	assert.Contains(t, out, "Error: not_found error (code 404): resource not found\n")
	assert.Contains(t, out, "\"message\": \"Not Found\"")
	assert.Equal(t, 1, strings.Count(out, "404\n"))
}

func TestTextFeedFields(t *testing.T) {
	r, buf := newReporter(t, FormatText)

	res := lookup.New("manufacturer", "rollup", "DH6927-140")
	res.StatusCode = 200
	res.AddField("squarishURL", "https://static.example.com/sq.jpg")
	res.AddField("portraitURL", "https://static.example.com/p.jpg")
	res.Primary = "https://static.example.com/sq.jpg"
	res.AddImage("https://static.example.com/sq.jpg")
	res.AddImage("https://static.example.com/p.jpg")
	res.AddImage("https://static.example.com/extra.jpg")
	require.NoError(t, r.Result(res.Settle()))

	assert.Equal(t, strings.Join([]string{
		"=== manufacturer rollup: DH6927-140 ===",
		"Rollup API: 200",
		"squarishURL: https://static.example.com/sq.jpg",
		"portraitURL: https://static.example.com/p.jpg",
		"IMG: https://static.example.com/extra.jpg",
		"",
	}, "\n"), buf.String())
}

func TestJSONResult(t *testing.T) {
	r, buf := newReporter(t, FormatJSON)
	require.NoError(t, r.Result(pageResult()))

	var decoded map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "found", decoded["status"])
	assert.Equal(t, "https://images.stockx.com/images/og.jpg", decoded["primary"])
	assert.Len(t, decoded["images"], 2)
	assert.NotContains(t, decoded, "error")
}

func TestJSONResults(t *testing.T) {
	r, buf := newReporter(t, FormatJSON)
	failed := lookup.New("manufacturer", "threads", "X").Fail(errors.New("boom"))
	require.NoError(t, r.Results([]*lookup.Result{pageResult(), failed}))

	var decoded []map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "failed", decoded[1]["status"])
	assert.Equal(t, "boom", decoded[1]["error"])
}

func TestTextResultsSeparated(t *testing.T) {
	r, buf := newReporter(t, FormatText)
	require.NoError(t, r.Results([]*lookup.Result{pageResult(), pageResult()}))
	assert.Equal(t, 2, strings.Count(buf.String(), "=== marketplace page"))
	assert.Contains(t, buf.String(), "\n\n=== marketplace page")
}

func TestProbe(t *testing.T) {
	outcomes := []marketplace.ProbeOutcome{
		{Suffix: "", StatusCode: 200},
		{Suffix: "?includes=media", StatusCode: 200, HasMedia: true, HasImage: true, Excerpt: "{\n  \"media\": {}\n}"},
		{Suffix: "?includes=images", Error: "network error: request failed"},
	}

	r, buf := newReporter(t, FormatText)
	require.NoError(t, r.Probe("abc", outcomes))
	out := buf.String()
	assert.Contains(t, out, "product abc")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "?includes=media: 200, has_media=true, has_image=true\n{\n  \"media\": {}\n}")
	assert.Contains(t, out, "?includes=images: network error: request failed")

	r, buf = newReporter(t, FormatJSON)
	require.NoError(t, r.Probe("abc", outcomes))
	assert.Equal(t, "abc", jsoniter.Get(buf.Bytes(), "product").ToString())
	assert.True(t, jsoniter.Get(buf.Bytes(), "outcomes", 1, "has_media").ToBool())
}

func TestInspect(t *testing.T) {
	rep := &inspect.Report{
		URL:        "https://example.com",
		StatusCode: 200,
		Length:     1234,
		Keys:       []inspect.Key{{Token: "eyJhbGciOiJIUzI1NiJ9.eyJyZWYiOiJ4In0.signature", Ref: "projectref", Role: "anon"}},
		Needle:     "Visitors",
		Contains:   true,
	}

	r, buf := newReporter(t, FormatText)
	require.NoError(t, r.Inspect(rep))
	out := buf.String()
	assert.Contains(t, out, "Status: 200\nHTML length: 1234\n")
	assert.Contains(t, out, "projectref")
	assert.Contains(t, out, "eyJhbGci...ture")
	assert.NotContains(t, out, rep.Keys[0].Token)
	assert.Contains(t, out, `Contains "Visitors": true`)

	r, buf = newReporter(t, FormatJSON)
	require.NoError(t, r.Inspect(rep))
	assert.Equal(t, "eyJhbGci...ture", jsoniter.Get(buf.Bytes(), "keys", 0, "token").ToString())
	assert.Equal(t, "eyJhbGciOiJIUzI1NiJ9.eyJyZWYiOiJ4In0.signature", rep.Keys[0].Token)

	r, buf = newReporter(t, FormatText)
	require.NoError(t, r.Inspect(&inspect.Report{StatusCode: 200}))
	assert.Contains(t, buf.String(), "No keys found")
	assert.NotContains(t, buf.String(), "Contains")
}

func TestSecrets(t *testing.T) {
	secrets := []*auth.Secret{
		{Name: auth.SecretCatalogAPIKey, Value: "abcd1234efgh5678", LastModified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	r, buf := newReporter(t, FormatText)
	require.NoError(t, r.Secrets(secrets))
	assert.Contains(t, buf.String(), "catalog_api_key")
	assert.Contains(t, buf.String(), "abcd...5678")
	assert.NotContains(t, buf.String(), "abcd1234efgh5678")
	assert.Contains(t, buf.String(), "2026-01-02T03:04:05Z")

	r, buf = newReporter(t, FormatJSON)
	require.NoError(t, r.Secrets(secrets))
	assert.Equal(t, "abcd...5678", jsoniter.Get(buf.Bytes(), 0, "value").ToString())

	r, buf = newReporter(t, FormatText)
	require.NoError(t, r.Secrets(nil))
	assert.Equal(t, "No secrets stored\n", buf.String())
}

func TestPairs(t *testing.T) {
	pairs := []lookup.Field{{Name: "token", Value: "abcd********wxyz"}, {Name: "source", Value: "token store"}}

	r, buf := newReporter(t, FormatText)
	require.NoError(t, r.Pairs(pairs))
	assert.Equal(t, "token: abcd********wxyz\nsource: token store\n", buf.String())

	r, buf = newReporter(t, FormatJSON)
	require.NoError(t, r.Pairs(pairs))
	assert.Equal(t, "token store", jsoniter.Get(buf.Bytes(), "source").ToString())
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "eyJhbGci...ture", maskToken("eyJhbGciOiJIUzI1NiJ9.payload.signature"))
}
