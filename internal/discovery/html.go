package discovery

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"feedingest/internal/domain"
)

var categoryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Category:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)Topic:\s*([^\n]+)`),
}

// parseHTMLIndex reads a blog index page. Post containers are located in
// order of preference: div.post, then article, then any div holding a link.
func parseHTMLIndex(rawHTML, defaultSource string) []domain.DiscoveredItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	containers := doc.Find("div.post")
	if containers.Length() == 0 {
		containers = doc.Find("article")
	}
	if containers.Length() == 0 {
		containers = doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find("a").Length() > 0
		})
	}

	var items []domain.DiscoveredItem
	containers.Each(func(_ int, s *goquery.Selection) {
		if item, ok := itemFromContainer(s, defaultSource); ok {
			items = append(items, item)
		}
	})
	return items
}

func itemFromContainer(s *goquery.Selection, defaultSource string) (domain.DiscoveredItem, bool) {
	link := s.Find("a.post-link").First()
	if link.Length() == 0 {
		link = s.Find("a").First()
	}
	if link.Length() == 0 {
		return domain.DiscoveredItem{}, false
	}

	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" {
		return domain.DiscoveredItem{}, false
	}
	title := strings.TrimSpace(link.Text())
	if title == "" {
		return domain.DiscoveredItem{}, false
	}

	var published *time.Time
	if datetime := s.Find("time").First().AttrOr("datetime", ""); datetime != "" {
		published = ParseTime(datetime)
	}

	return domain.DiscoveredItem{
		ID:          domain.ItemID(href),
		URL:         href,
		Title:       title,
		PublishedAt: published,
		Tags:        containerTags(s),
		Source:      defaultSource,
	}, true
}

// containerTags gathers tags from explicit markers, category-labeled
// neighbors, data attributes, and Category:/Topic: text patterns. This is
// best-effort metadata only; false positives on unrelated text are accepted.
func containerTags(s *goquery.Selection) []string {
	var tags []string
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		for _, existing := range tags {
			if existing == tag {
				return
			}
		}
		tags = append(tags, tag)
	}

	s.Find(".tag").Each(func(_ int, el *goquery.Selection) {
		add(el.Text())
	})

	parent := s.Parent()
	if parent.Length() > 0 {
		for _, class := range strings.Fields(parent.AttrOr("class", "")) {
			lower := strings.ToLower(class)
			if strings.Contains(lower, "category") || strings.Contains(lower, "tag") {
				add(class)
			}
		}
		parent.Find("h2, h3, h4, span").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			class := strings.ToLower(el.AttrOr("class", ""))
			if strings.Contains(class, "category") || strings.Contains(class, "tag") {
				add(el.Text())
				return false
			}
			return true
		})
	}

	if data := s.AttrOr("data-category", s.AttrOr("data-tag", "")); data != "" {
		add(data)
	}

	text := s.Text()
	for _, pattern := range categoryPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			add(match[1])
		}
	}

	return tags
}
