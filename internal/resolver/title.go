package resolver

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Scraped titles carry storefront noise the report must not show.
var (
	amazonPrefixRe = regexp.MustCompile(`^Amazon\.com:\s*`)
	storeSuffixRe  = regexp.MustCompile(`\s*:\s*(Books|Kindle Store)\s*$`)
	isbnSuffixRe   = regexp.MustCompile(`:\s*\d{13,}:\s*Amazon\.com\s*$`)
	amazonSuffixRe = regexp.MustCompile(`\s*:\s*Amazon\.com\s*$`)
	ebookSuffixRe  = regexp.MustCompile(`\s*eBook\s*:\s*.+$`)
	authorSuffixRe = regexp.MustCompile(`:\s*[A-Z][a-z]+,\s*[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\s*$`)
)

// ExtractTitle pulls the product title out of an Amazon product page. The
// productTitle span is the reliable source when present; the <title> tag is
// the fallback. Returns "" when the page has no usable title (bot-block and
// CAPTCHA pages title themselves just "Amazon.com").
func ExtractTitle(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	if span := findByID(doc, "span", "productTitle"); span != nil {
		if title := cleanTitle(textContent(span)); title != "" {
			return title
		}
	}
	if node := findFirst(doc, "title"); node != nil {
		return cleanTitle(textContent(node))
	}
	return ""
}

// cleanTitle strips storefront decoration from a raw title. Returns "" for
// junk titles.
func cleanTitle(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = amazonPrefixRe.ReplaceAllString(raw, "")
	if junkTitle(raw) {
		return ""
	}
	raw = storeSuffixRe.ReplaceAllString(raw, "")
	raw = isbnSuffixRe.ReplaceAllString(raw, "")
	raw = amazonSuffixRe.ReplaceAllString(raw, "")
	raw = ebookSuffixRe.ReplaceAllString(raw, "")
	raw = authorSuffixRe.ReplaceAllString(raw, "")
	raw = strings.TrimRight(strings.TrimSpace(raw), ":")
	raw = strings.TrimSpace(raw)
	if junkTitle(raw) {
		return ""
	}
	return raw
}

func junkTitle(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "amazon.com", "page not found":
		return true
	}
	return false
}

func findByID(n *html.Node, tag, id string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, tag, id); found != nil {
			return found
		}
	}
	return nil
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
