package browser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

var spaceRegexp = regexp.MustCompile(`[ \t\r\f\v]+`)
var blankLinesRegexp = regexp.MustCompile(`\n{3,}`)

// Readable reduces a rendered page to its main text, title first. When the
// readability pass finds nothing it falls back to the body text.
func Readable(html, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), base)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return tidy(article.Title + "\n\n" + article.TextContent), nil
	}

	doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if derr != nil {
		return "", fmt.Errorf("parse html: %w", derr)
	}
	doc.Find("script, style, noscript").Remove()
	text := tidy(doc.Find("title").First().Text() + "\n\n" + doc.Find("body").Text())
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no readable text on %s", pageURL)
	}
	return text, nil
}

// Link is an anchor whose href matched a harvest pattern.
type Link struct {
	URL    string
	Groups []string
}

// HarvestLinks returns the absolute URLs of every anchor whose href matches
// pattern, once each, in document order. Groups holds the pattern's
// submatches so callers can pull listing IDs out of the path.
func HarvestLinks(html, pageURL string, pattern *regexp.Regexp) ([]Link, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]bool)
	var links []Link
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := pattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		key := abs.String()
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, Link{URL: key, Groups: m[1:]})
	})
	return links, nil
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRegexp.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(blankLinesRegexp.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
