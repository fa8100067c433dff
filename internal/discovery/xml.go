package discovery

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"time"

	"feedingest/internal/domain"
)

// xmlNode is a generic element tree used to walk Atom and RSS documents
// without committing to either schema. Namespaced and bare tags share the
// same local name, which is all the matching below cares about.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func (n *xmlNode) local() string {
	return strings.ToLower(n.XMLName.Local)
}

func (n *xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

func (n *xmlNode) child(local string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].local() == local {
			return &n.Children[i]
		}
	}
	return nil
}

func (n *xmlNode) childrenNamed(local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Children {
		if n.Children[i].local() == local {
			out = append(out, &n.Children[i])
		}
	}
	return out
}

func (n *xmlNode) findAll(local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Children {
		child := &n.Children[i]
		if child.local() == local {
			out = append(out, child)
		}
		out = append(out, child.findAll(local)...)
	}
	return out
}

func collectText(n *xmlNode) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	appendText(&b, n)
	return b.String()
}

func appendText(b *strings.Builder, n *xmlNode) {
	b.WriteString(n.Text)
	for i := range n.Children {
		appendText(b, &n.Children[i])
	}
}

var (
	markupPattern  = regexp.MustCompile(`<[^>]+>`)
	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// cleanTitle strips embedded markup and decodes the five basic HTML entities.
func cleanTitle(s string) string {
	s = markupPattern.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	return strings.TrimSpace(s)
}

// parseXMLFeed extracts items from an Atom or RSS document. A document that
// does not decode yields zero items; individual entries missing a title or
// link are skipped without aborting the batch.
func parseXMLFeed(raw, defaultSource string) []domain.DiscoveredItem {
	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		return nil
	}

	isAtom := root.local() == "feed"
	isRSS := root.local() == "rss"

	var entries []*xmlNode
	switch {
	case isAtom:
		entries = root.findAll("entry")
	case isRSS:
		if channel := root.child("channel"); channel != nil {
			entries = channel.childrenNamed("item")
		}
	default:
		entries = root.findAll("entry")
		if len(entries) == 0 {
			if channel := root.child("channel"); channel != nil {
				entries = channel.childrenNamed("item")
				isRSS = len(entries) > 0
			}
		}
	}

	items := make([]domain.DiscoveredItem, 0, len(entries))
	for _, entry := range entries {
		if item, ok := itemFromEntry(entry, defaultSource, isRSS); ok {
			items = append(items, item)
		}
	}
	return items
}

func itemFromEntry(entry *xmlNode, defaultSource string, rss bool) (domain.DiscoveredItem, bool) {
	title := cleanTitle(collectText(entry.child("title")))
	if title == "" {
		return domain.DiscoveredItem{}, false
	}

	url := entryURL(entry, rss)
	if url == "" {
		return domain.DiscoveredItem{}, false
	}

	var published *time.Time
	if rss {
		if el := entry.child("pubdate"); el != nil {
			published = ParseTime(collectText(el))
		}
	} else {
		el := entry.child("published")
		if el == nil {
			el = entry.child("updated")
		}
		if el != nil {
			published = ParseTime(collectText(el))
		}
	}

	var tags []string
	for _, cat := range entry.childrenNamed("category") {
		term := cat.attr("term")
		if rss || term == "" {
			term = collectText(cat)
		}
		if term = strings.TrimSpace(term); term != "" {
			tags = append(tags, term)
		}
	}

	return domain.DiscoveredItem{
		ID:            domain.ItemID(url),
		URL:           url,
		Title:         title,
		PublishedAt:   published,
		Tags:          tags,
		Source:        defaultSource,
		InlineContent: entryContent(entry, rss),
	}, true
}

func entryURL(entry *xmlNode, rss bool) string {
	if rss {
		if link := entry.child("link"); link != nil {
			if url := strings.TrimSpace(collectText(link)); url != "" {
				return url
			}
		}
		if guid := entry.child("guid"); guid != nil {
			return strings.TrimSpace(collectText(guid))
		}
		return ""
	}

	// Atom: first link that is an alternate, carries no rel, or points at an
	// HTML page.
	for _, link := range entry.childrenNamed("link") {
		rel := link.attr("rel")
		if rel == "" || rel == "alternate" || link.attr("type") == "text/html" {
			if href := strings.TrimSpace(link.attr("href")); href != "" {
				return href
			}
		}
	}
	return ""
}

// entryContent pulls the full article body out of the entry when the feed
// carries one. Atom content is only taken for html/xhtml payloads; RSS
// prefers content:encoded and falls back to description.
func entryContent(entry *xmlNode, rss bool) string {
	if rss {
		if el := entry.child("encoded"); el != nil {
			if text := strings.TrimSpace(collectText(el)); text != "" {
				return text
			}
		}
		if el := entry.child("description"); el != nil {
			return strings.TrimSpace(collectText(el))
		}
		return ""
	}

	el := entry.child("content")
	if el == nil {
		return ""
	}
	ctype := strings.ToLower(el.attr("type"))
	if ctype == "" {
		ctype = "text"
	}
	if ctype != "html" && ctype != "xhtml" && ctype != "text/html" {
		return ""
	}
	if ctype == "xhtml" {
		if markup := strings.TrimSpace(renderMarkup(el.Children)); markup != "" {
			return markup
		}
	}
	return strings.TrimSpace(collectText(el))
}

func renderMarkup(nodes []xmlNode) string {
	var b strings.Builder
	for i := range nodes {
		writeMarkup(&b, &nodes[i])
	}
	return b.String()
}

func writeMarkup(b *strings.Builder, n *xmlNode) {
	b.WriteString("<" + n.XMLName.Local)
	for _, a := range n.Attrs {
		fmt.Fprintf(b, " %s=%q", a.Name.Local, a.Value)
	}
	b.WriteString(">")
	b.WriteString(n.Text)
	for i := range n.Children {
		writeMarkup(b, &n.Children[i])
	}
	b.WriteString("</" + n.XMLName.Local + ">")
}
