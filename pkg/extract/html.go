package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultLimit caps the number of host-prefixed image URLs returned
	DefaultLimit = 5
	// DefaultImageHost is the marketplace image CDN prefix
	DefaultImageHost = "https://images.stockx.com/images/"
)

var (
	metaImagePattern = regexp.MustCompile(`og:image[^>]*content="(.*?)"`)
	titlePattern     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// HTMLImages is what an HTML page yielded
type HTMLImages struct {
	MetaImage string
	Images    []string
}

// Empty reports whether nothing was extracted
func (h HTMLImages) Empty() bool {
	return h.MetaImage == "" && len(h.Images) == 0
}

// HTML extracts the meta image and the host-prefixed image URLs from body
func HTML(body, host string, limit int) HTMLImages {
	return HTMLImages{
		MetaImage: MetaImage(body),
		Images:    HostImages(body, host, limit),
	}
}

// MetaImage returns the first og:image content value, or "".
// The attribute-order-sensitive pattern is tried first and a DOM pass
// catches tags where content precedes property.
func MetaImage(body string) string {
	if m := metaImagePattern.FindStringSubmatch(body); m != nil {
		return m[1]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	content, _ := doc.Find(`meta[property="og:image"], meta[name="og:image"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

// HostImages finds every URL starting with host, deduplicated, sorted and
// truncated to limit. A limit of zero or less keeps every match.
func HostImages(body, host string, limit int) []string {
	if host == "" {
		return nil
	}
	pattern := regexp.MustCompile(regexp.QuoteMeta(host) + `[^"'>\s]+`)

	seen := make(map[string]bool)
	var out []string
	for _, m := range pattern.FindAllString(body, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Title returns the text of the first <title> element, or ""
func Title(body string) string {
	m := titlePattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
