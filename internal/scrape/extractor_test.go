package scrape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"feedingest/internal/domain"
)

func testItem(title string) domain.DiscoveredItem {
	url := "https://example.com/post"
	return domain.DiscoveredItem{
		ID:    domain.ItemID(url),
		URL:   url,
		Title: title,
	}
}

func TestExtractArticleRoot(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<nav>Menu Items</nav>
<article>
  <h1>Heading</h1>
  <p>Para one.</p>
  <script>var tracking = true;</script>
  <h2>Second</h2>
  <p>Para two.</p>
  <p>Para three.</p>
</article>
<footer>Footer</footer>
</body></html>`

	got := Extract(testItem("A Post"), page)

	assert.Equal(t, "Heading Para one. Second Para two. Para three.", got.Text)
	assert.NotContains(t, got.Text, "Menu")
	assert.NotContains(t, got.Text, "tracking")
	require.Len(t, got.Sections, 2)
	assert.Equal(t, "Heading\n\nPara one.", got.Sections[0])
	assert.Equal(t, "Second\n\nPara two.\n\nPara three.", got.Sections[1])
	assert.Equal(t, page, got.RawBody)
}

func TestExtractClassContainerRoot(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<div class="sidebar">Related links</div>
<div class="blog-post">
  <h2>Inside</h2>
  <p>Container body.</p>
</div>
</body></html>`

	got := Extract(testItem("A Post"), page)

	assert.Equal(t, "Inside Container body.", got.Text)
	require.Len(t, got.Sections, 1)
	assert.Equal(t, "Inside\n\nContainer body.", got.Sections[0])
}

func TestExtractImplicitSection(t *testing.T) {
	t.Parallel()

	page := `<html><body><p>Just a paragraph with no heading.</p></body></html>`

	got := Extract(testItem("A Post"), page)

	assert.Equal(t, "Just a paragraph with no heading.", got.Text)
	assert.Equal(t, []string{got.Text}, got.Sections, "unstructured text becomes one implicit section")
}

func TestExtractHeadingWithoutParagraph(t *testing.T) {
	t.Parallel()

	page := `<html><body><article><h1>Lonely Heading</h1></article></body></html>`

	got := Extract(testItem("A Post"), page)

	assert.Equal(t, "Lonely Heading", got.Text)
	assert.Equal(t, []string{"Lonely Heading"}, got.Sections, "a heading with no paragraphs falls back to the implicit section")
}

func TestExtractEmptyBodyUsesTitle(t *testing.T) {
	t.Parallel()

	got := Extract(testItem("Fallback Title"), "")
	assert.Equal(t, "Fallback Title", got.Text)
	assert.Nil(t, got.Sections)

	got = Extract(testItem(""), "   \n ")
	assert.Equal(t, "No content available", got.Text)
}

func TestExtractWhitespaceCollapse(t *testing.T) {
	t.Parallel()

	page := "<html><body><article><p>spread\n\n   out\t text</p></article></body></html>"

	got := Extract(testItem("A Post"), page)
	assert.Equal(t, "spread out text", got.Text)
}

func TestExtractTextNeverEmpty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		body := rapid.String().Draw(t, "body")
		title := rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,20}`).Draw(t, "title")

		got := Extract(testItem(title), body)
		if strings.TrimSpace(got.Text) == "" {
			t.Fatalf("empty text for body %q", body)
		}
	})
}
