// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// JSON-LD structures. A script block is either a FAQPage with questions
// under mainEntity, or a single standalone Question.
type jsonLDBlock struct {
	Type           string         `json:"@type"`
	Name           string         `json:"name"`
	MainEntity     []jsonLDEntity `json:"mainEntity"`
	AcceptedAnswer jsonLDAnswer   `json:"acceptedAnswer"`
}

type jsonLDEntity struct {
	Type           string       `json:"@type"`
	Name           string       `json:"name"`
	AcceptedAnswer jsonLDAnswer `json:"acceptedAnswer"`
}

type jsonLDAnswer struct {
	Text string `json:"text"`
}

// ExtractFAQ pulls question/answer pairs from the JSON-LD structured data
// embedded in an FAQ page and renders them as "Q: ... / A: ..." text.
// Script blocks that fail to parse are skipped; answers have their HTML
// markup stripped.
func ExtractFAQ(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	var b strings.Builder
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var block jsonLDBlock
		if err := json.Unmarshal([]byte(sel.Text()), &block); err != nil {
			return
		}

		switch block.Type {
		case "FAQPage":
			for _, entity := range block.MainEntity {
				if entity.Type == "Question" {
					writeQA(&b, entity.Name, entity.AcceptedAnswer.Text)
				}
			}
		case "Question":
			writeQA(&b, block.Name, block.AcceptedAnswer.Text)
		}
	})

	return strings.TrimSpace(b.String()), nil
}

func writeQA(b *strings.Builder, question, answerHTML string) {
	fmt.Fprintf(b, "Q: %s\nA: %s\n\n", question, stripMarkup(answerHTML))
}

// stripMarkup renders an HTML fragment as plain text.
func stripMarkup(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}
