package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Article is the reader-mode view of an HTML document.
type Article struct {
	Title   string
	Text    string
	Excerpt string
	Byline  string
}

const (
	noiseSelector   = "script, style, noscript, template, svg, nav, footer, header, aside, iframe, form, button"
	blockSelector   = "p, h1, h2, h3, h4, h5, h6, li, pre, blockquote, td, figcaption"
	containerBlocks = "p, li, pre, blockquote, td, figcaption"
)

// ParseHTML extracts title, main text, excerpt and byline from doc and
// strips noise nodes from doc in place. An empty Text means no readable
// block was found; callers fall back to the raw body text.
func ParseHTML(doc *goquery.Document) Article {
	var art Article

	art.Title = firstNonEmpty(
		attr(doc, `meta[property="og:title"]`, "content"),
		text(doc.Find("h1").First()),
		text(doc.Find("title").First()),
	)
	art.Excerpt = firstNonEmpty(
		attr(doc, `meta[name="description"]`, "content"),
		attr(doc, `meta[property="og:description"]`, "content"),
	)
	art.Byline = firstNonEmpty(
		attr(doc, `meta[name="author"]`, "content"),
		text(doc.Find(`[rel="author"]`).First()),
		text(doc.Find(".byline, .author").First()),
	)

	doc.Find(noiseSelector).Remove()

	root := mainContent(doc)
	var blocks []string
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(containerBlocks).Length() > 0 {
			return
		}
		if t := text(s); t != "" {
			blocks = append(blocks, t)
		}
	})
	art.Text = strings.Join(blocks, "\n\n")

	if art.Excerpt == "" {
		root.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := text(s); len([]rune(t)) >= 40 {
				art.Excerpt = t
				return false
			}
			return true
		})
	}
	return art
}

// mainContent picks article/main when present, otherwise the block with the
// most direct paragraph text, otherwise body.
func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"article", "main", `[role="main"]`} {
		if s := doc.Find(sel).First(); s.Length() > 0 && text(s) != "" {
			return s
		}
	}
	var best *goquery.Selection
	bestScore := 0
	doc.Find("div, section").Each(func(_ int, s *goquery.Selection) {
		score := 0
		s.ChildrenFiltered("p").Each(func(_ int, p *goquery.Selection) {
			score += len(text(p))
		})
		if score > bestScore {
			best, bestScore = s, score
		}
	})
	if best != nil {
		return best
	}
	return doc.Find("body")
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

func text(s *goquery.Selection) string {
	return normalizeSpace(s.Text())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
