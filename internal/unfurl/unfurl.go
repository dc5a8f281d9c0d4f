// Package unfurl extracts link-preview metadata from HTML captured during
// GET-escalated resolutions. It is a supporting collaborator of the
// pipeline, not part of the resolution decision itself.
package unfurl

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata is what a preview needs from a page.
type Metadata struct {
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
}

// Extract pulls metadata out of an HTML document. Open Graph tags win over
// plain document tags; anything missing stays empty. Unparsable input
// yields empty metadata, never an error: unfurling is best effort.
func Extract(html string) Metadata {
	var meta Metadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	meta.Title = firstNonEmpty(
		metaContent(doc, "og:title"),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	meta.Description = firstNonEmpty(
		metaContent(doc, "og:description"),
		metaByName(doc, "description"),
	)
	meta.CanonicalURL = firstNonEmpty(
		metaContent(doc, "og:url"),
		linkHref(doc, "canonical"),
	)

	return meta
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

func metaByName(doc *goquery.Document, name string) string {
	content, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

func linkHref(doc *goquery.Document, rel string) string {
	href, _ := doc.Find(`link[rel="` + rel + `"]`).First().Attr("href")
	return strings.TrimSpace(href)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
