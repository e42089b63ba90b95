package testserver

import (
	"fmt"
	"strings"
)

// ProductPage renders a marketplace product page with an og:image meta tag
// and the given inline image URLs.
func ProductPage(title, ogImage string, images ...string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head>")
	fmt.Fprintf(&b, "<title>%s</title>", title)
	if ogImage != "" {
		fmt.Fprintf(&b, `<meta property="og:image" content="%s">`, ogImage)
	}
	b.WriteString("</head><body>")
	for _, img := range images {
		fmt.Fprintf(&b, `<img src="%s">`, img)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// RollupFeed renders a rollup feed response with one product
func RollupFeed(squarish, portrait string, productImages ...string) string {
	infos := make([]string, 0, len(productImages))
	for _, img := range productImages {
		infos = append(infos, fmt.Sprintf(`{"imageUrl":%q}`, img))
	}
	return fmt.Sprintf(`{"data":{"products":{"objects":[{
		"images":{"squarishURL":%q,"portraitURL":%q},
		"productInfo":[%s],
		"publishedContent":{"properties":{"coverCard":{"properties":{"coverImage":{"url":"https://static.example.com/cover.jpg"}}}}}
	}]}}}`, squarish, portrait, strings.Join(infos, ","))
}

// ThreadsFeed renders a threads feed response with one object per squarish URL
func ThreadsFeed(squarish ...string) string {
	objects := make([]string, 0, len(squarish))
	for _, u := range squarish {
		objects = append(objects, fmt.Sprintf(`{"publishedContent":{"properties":{"coverCard":{"properties":{"squarish":{"url":%q}}}}}}`, u))
	}
	return fmt.Sprintf(`{"objects":[%s]}`, strings.Join(objects, ","))
}
