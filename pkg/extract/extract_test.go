package extract

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html><html><head>
<title> Air Jordan 1 Retro High OG Chicago </title>
<meta property="og:image" content="https://images.stockx.com/images/Air-Jordan-1-Chicago.jpg?fit=fill">
</head><body>
<img src="https://images.stockx.com/images/c.jpg">
<img src='https://images.stockx.com/images/a.jpg'>
<img src="https://images.stockx.com/images/b.jpg">
<img src="https://images.stockx.com/images/a.jpg">
<img src="https://cdn.example.com/images/z.jpg">
</body></html>`

func TestMetaImage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "property before content",
			body: samplePage,
			want: "https://images.stockx.com/images/Air-Jordan-1-Chicago.jpg?fit=fill",
		},
		{
			name: "content before property",
			body: `<html><head><meta content="https://img.example.com/x.png" property="og:image"></head></html>`,
			want: "https://img.example.com/x.png",
		},
		{
			name: "name attribute",
			body: `<html><head><meta content="https://img.example.com/y.png" name="og:image"/></head></html>`,
			want: "https://img.example.com/y.png",
		},
		{
			name: "first match wins",
			body: `<meta property="og:image" content="first"><meta property="og:image" content="second">`,
			want: "first",
		},
		{
			name: "absent",
			body: `<html><head><title>x</title></head></html>`,
			want: "",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MetaImage(tt.body))
		})
	}
}

func TestHostImages(t *testing.T) {
	got := HostImages(samplePage, DefaultImageHost, DefaultLimit)
	assert.Equal(t, []string{
		"https://images.stockx.com/images/Air-Jordan-1-Chicago.jpg?fit=fill",
		"https://images.stockx.com/images/a.jpg",
		"https://images.stockx.com/images/b.jpg",
		"https://images.stockx.com/images/c.jpg",
	}, got)
}

func TestHostImagesTruncates(t *testing.T) {
	body := ""
	for i := 9; i >= 0; i-- {
		body += fmt.Sprintf(`<img src="https://images.stockx.com/images/%d.jpg">`, i)
		body += fmt.Sprintf(`<img src="https://images.stockx.com/images/%d.jpg">`, i)
	}

	got := HostImages(body, DefaultImageHost, 5)
	require.Len(t, got, 5)
	assert.Equal(t, "https://images.stockx.com/images/0.jpg", got[0])
	assert.Equal(t, "https://images.stockx.com/images/4.jpg", got[4])

	assert.Len(t, HostImages(body, DefaultImageHost, 0), 10)
	assert.Len(t, HostImages(body, DefaultImageHost, -1), 10)
}

func TestHostImagesEscapesHost(t *testing.T) {
	body := `https://imagesXstockx.com/images/fake.jpg https://images.stockx.com/images/real.jpg`
	assert.Equal(t, []string{"https://images.stockx.com/images/real.jpg"}, HostImages(body, DefaultImageHost, 5))
	assert.Nil(t, HostImages(body, "", 5))
}

func TestHTML(t *testing.T) {
	res := HTML(samplePage, DefaultImageHost, 2)
	assert.False(t, res.Empty())
	assert.NotEmpty(t, res.MetaImage)
	assert.Len(t, res.Images, 2)

	assert.True(t, HTML("<html></html>", DefaultImageHost, 5).Empty())
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Air Jordan 1 Retro High OG Chicago", Title(samplePage))
	assert.Equal(t, "Access Denied", Title("<HTML><TITLE lang=\"en\">\nAccess Denied\n</TITLE></HTML>"))
	assert.Equal(t, "", Title("<html></html>"))
}

const sampleJSON = `{
	"id": "abc",
	"title": "Dunk Low",
	"media": {"imageUrl": "https://images.stockx.com/images/dunk.jpg", "count": 3},
	"productInfo": [{"imageUrl": "https://static.example.com/0.jpg"}, {"other": 1}, {"imageUrl": "https://static.example.com/2.jpg"}]
}`

func TestPath(t *testing.T) {
	assert.Nil(t, Path(""))
	assert.Equal(t, []interface{}{"a", 0, "b"}, Path("a.0.b"))
}

func TestString(t *testing.T) {
	body := []byte(sampleJSON)

	assert.Equal(t, "https://images.stockx.com/images/dunk.jpg", String(body, "media", "imageUrl"))
	assert.Equal(t, "https://static.example.com/0.jpg", String(body, Path("productInfo.0.imageUrl")...))

	// missing keys and non-string values yield ""
	assert.Equal(t, "", String(body, "media", "thumbUrl"))
	assert.Equal(t, "", String(body, "nope", "deeper", "still"))
	assert.Equal(t, "", String(body, "media", "count"))
	assert.Equal(t, "", String(body, Path("productInfo.7.imageUrl")...))
	assert.Equal(t, "", String([]byte("not json"), "media"))
	assert.Equal(t, "", String(nil, "media"))
}

func TestArrayHelpers(t *testing.T) {
	body := []byte(sampleJSON)

	assert.Equal(t, 3, Len(body, "productInfo"))
	assert.Equal(t, 0, Len(body, "media"))
	assert.Equal(t, 0, Len(body, "missing"))

	assert.True(t, Has(body, "media", "count"))
	assert.False(t, Has(body, "media", "missing"))

	assert.Equal(t, []string{
		"https://static.example.com/0.jpg",
		"https://static.example.com/2.jpg",
	}, Strings(body, []interface{}{"productInfo"}, "imageUrl"))
	assert.Empty(t, Strings(body, []interface{}{"missing"}, "imageUrl"))
}

func TestFirstString(t *testing.T) {
	body := []byte(sampleJSON)

	path, value := FirstString(body, "media.thumbUrl", "media.imageUrl", "title")
	assert.Equal(t, "media.imageUrl", path)
	assert.Equal(t, "https://images.stockx.com/images/dunk.jpg", value)

	path, value = FirstString(body, "a", "b.c")
	assert.Empty(t, path)
	assert.Empty(t, value)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(sampleJSON)))
	assert.False(t, Valid([]byte("<html>")))
}

func TestPretty(t *testing.T) {
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    true\n  ]\n}", Pretty([]byte(`{"b":1,"a":[true]}`), 0))
	assert.Equal(t, "{\n  \"", Pretty([]byte(`{"b":1}`), 5))
	assert.Equal(t, "<html", Pretty([]byte("<html><body>"), 5))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}

func makeJWT(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".c2lnbmF0dXJl"
}

func TestFindJWTs(t *testing.T) {
	anon := makeJWT(`{"ref":"abcdefgh","role":"anon"}`)
	other := makeJWT(`{"sub":"user"}`)
	body := fmt.Sprintf(`<script>const a="%s";const b='%s';const c="%s"</script>`, anon, other, anon)

	assert.Equal(t, []string{anon, other}, FindJWTs(body))
	assert.Empty(t, FindJWTs("<html>eyJnotatoken</html>"))
}

func TestDecodeClaims(t *testing.T) {
	claims, err := DecodeClaims(makeJWT(`{"ref":"abcdefgh","role":"anon","exp":1700000000}`))
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", claims["ref"])
	assert.Equal(t, "anon", claims["role"])

	// padded payloads are tolerated
	padded := "eyJh." + base64.URLEncoding.EncodeToString([]byte(`{"ref":"x"}`)) + ".sig"
	claims, err = DecodeClaims(padded)
	require.NoError(t, err)
	assert.Equal(t, "x", claims["ref"])

	_, err = DecodeClaims("only.two")
	assert.Error(t, err)

	_, err = DecodeClaims("a.!!!.c")
	assert.Error(t, err)

	_, err = DecodeClaims("a." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".c")
	assert.Error(t, err)
}
