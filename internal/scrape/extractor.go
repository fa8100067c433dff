// Package scrape converts a fetched article body into normalized plain text
// and heading-delimited sections.
package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"feedingest/internal/domain"
)

// containerClasses are tried in order when no <article> tag exists; a div
// whose class contains one of these (case-insensitive) becomes the root.
var containerClasses = []string{"post", "article", "blog-article", "blog-post", "content", "main-content"}

var whitespacePattern = regexp.MustCompile(`\s+`)

// Extract parses rawHTML into the item's content. The returned Text is never
// empty: when nothing can be extracted the item title stands in, so
// downstream validation always sees a non-empty document.
func Extract(item domain.DiscoveredItem, rawHTML string) domain.ExtractedContent {
	content := domain.ExtractedContent{
		ItemID:  item.ID,
		URL:     item.URL,
		Title:   item.Title,
		RawBody: rawHTML,
	}

	if strings.TrimSpace(rawHTML) == "" {
		content.Text = placeholderText(item)
		return content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		content.Text = placeholderText(item)
		return content
	}

	root := selectRoot(doc)
	root.Find("script, style, noscript").Remove()

	content.Text = normalizeText(root)
	content.Sections = extractSections(root)
	if len(content.Sections) == 0 && content.Text != "" {
		// No heading structure: the full text is one implicit section.
		content.Sections = []string{content.Text}
	}
	if content.Text == "" {
		content.Text = placeholderText(item)
		content.Sections = nil
	}

	return content
}

func placeholderText(item domain.DiscoveredItem) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	return "No content available"
}

func selectRoot(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("article").First(); sel.Length() > 0 {
		return sel
	}
	for _, class := range containerClasses {
		sel := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.AttrOr("class", "")), class)
		}).First()
		if sel.Length() > 0 {
			return sel
		}
	}
	if sel := doc.Find("main").First(); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("body").First(); sel.Length() > 0 {
		return sel
	}
	return doc.Selection
}

// normalizeText extracts the text of a selection with spaces between nodes
// and runs of whitespace collapsed.
func normalizeText(s *goquery.Selection) string {
	var parts []string
	for _, node := range s.Nodes {
		collectNodeText(node, &parts)
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(strings.Join(parts, " "), " "))
}

func collectNodeText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		*parts = append(*parts, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectNodeText(c, parts)
	}
}

// extractSections walks headings and paragraphs in document order. Each
// heading opens a section that accumulates paragraph text until the next
// heading; a section is only committed once it holds a heading and at least
// one paragraph.
func extractSections(root *goquery.Selection) []string {
	var (
		sections []string
		heading  string
		paras    []string
	)

	commit := func() {
		if heading != "" && len(paras) > 0 {
			sections = append(sections, heading+"\n\n"+strings.Join(paras, "\n\n"))
		}
	}

	root.Find("h1, h2, h3, h4, h5, h6, p").Each(func(_ int, el *goquery.Selection) {
		if goquery.NodeName(el) == "p" {
			if heading == "" {
				return
			}
			if text := normalizeText(el); text != "" {
				paras = append(paras, text)
			}
			return
		}

		commit()
		heading = normalizeText(el)
		paras = nil
	})
	commit()

	return sections
}
