// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// ExtractLegal renders the main content of a legal page (terms, privacy,
// imprint) as markdown-flavoured text: headings first, then paragraphs.
// The content container is located by falling through main, article, and
// div.page-content before giving up and using the whole body.
func ExtractLegal(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	container := doc.Find("main").First()
	for _, selector := range []string{"article", "div.page-content", "body"} {
		if container.Length() > 0 {
			break
		}
		container = doc.Find(selector).First()
	}
	if container.Length() == 0 {
		return "", fmt.Errorf("no content container found")
	}

	var b strings.Builder
	container.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(sel) {
		case "h1":
			fmt.Fprintf(&b, "# %s\n\n", text)
		case "h2":
			fmt.Fprintf(&b, "## %s\n\n", text)
		default:
			fmt.Fprintf(&b, "### %s\n\n", text)
		}
	})

	container.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := normalizeText(sel.Text())
		if text != "" {
			fmt.Fprintf(&b, "%s\n\n", text)
		}
	})

	out := strings.TrimSpace(b.String())
	if out == "" {
		// No structured content; fall back to the container's raw text.
		out = normalizeText(container.Text())
	}
	return out, nil
}

// normalizeText collapses whitespace runs to single spaces.
func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}
