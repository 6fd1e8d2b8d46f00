// scraper/discovery.go
package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoverLinks scrapes pageURL and returns the absolute URLs of every
// hyperlink whose raw href satisfies match, deduplicated by resolved URL in
// document order.
func (f *Fetcher) DiscoverLinks(pageURL string, match func(href string) bool) ([]string, error) {
	resp, err := f.get(pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("failed to get %s: status code %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !match(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref).String()
		if !seen[full] {
			seen[full] = true
			links = append(links, full)
		}
	})

	return links, nil
}

// DatasetLinkMatcher matches hrefs that carry the dataset naming pattern and
// the given file suffix, case-insensitively.
func DatasetLinkMatcher(suffix string) func(string) bool {
	suffix = strings.ToLower(suffix)
	return func(href string) bool {
		h := strings.ToLower(href)
		return strings.Contains(h, "dataset") && strings.HasSuffix(h, suffix)
	}
}

// FindLinkByText scrapes pageURL for the first hyperlink whose visible text
// contains any of the given terms (case-insensitive). Used for best-effort
// "newer data published?" checks.
func (f *Fetcher) FindLinkByText(pageURL string, terms []string) (string, bool, error) {
	resp, err := f.get(pageURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", false, fmt.Errorf("failed to get %s: status code %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}

	found := ""
	doc.Find("a[href]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.ToLower(sel.Text())
		for _, term := range terms {
			if strings.Contains(text, strings.ToLower(term)) {
				found, _ = sel.Attr("href")
				return false
			}
		}
		return true
	})

	return found, found != "", nil
}
