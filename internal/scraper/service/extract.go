package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rizkirmdhn/vidsweep/pkg/models"
)

// ExtractVideoLinks returns, in document order, the src of the first
// <source> nested in each element matched by selector. Videos whose first
// source has no src are left out. Relative URLs are resolved against
// location, the way the DOM src property is.
func ExtractVideoLinks(html, location, selector string) ([]models.VideoLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	base, err := url.Parse(location)
	if err != nil {
		base = nil
	}

	var links []models.VideoLink
	doc.Find(selector).Each(func(_ int, video *goquery.Selection) {
		src, ok := video.Find("source").First().Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			return
		}
		links = append(links, models.VideoLink{
			Index: len(links),
			URL:   resolve(base, src),
		})
	})

	return links, nil
}

func resolve(base *url.URL, src string) string {
	if base == nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}
