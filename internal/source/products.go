// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/taurbull/kbsync/pkg/types"
)

// ProductIDPrefix namespaces product document ids so they can be told
// apart from page and order documents.
const ProductIDPrefix = "product-"

const defaultMaxCatalogPages = 10

var (
	rePricePattern  = regexp.MustCompile(`€[\d,.]+`)
	reFromPrice     = regexp.MustCompile(`Von (€[\d,.]+)`)
	rePricePerKilo  = regexp.MustCompile(`€(\d+[.,]\d+)\s*/\s*pro kg`)
	reProductScript = regexp.MustCompile(`"price"\s*:\s*(\d+[.,]\d+)`)
)

// ProductSource crawls a shop's product catalog and produces one document
// per product: structured fields (name, price, offer, description) the
// conversational agent can answer from. The catalog listing is followed
// through pagination; each product detail page is fetched and extracted
// individually.
type ProductSource struct {
	client *http.Client
	cfg    types.ProductConfig
}

// NewProductSource builds a ProductSource. A nil client falls back to one
// with the configured timeout.
func NewProductSource(client *http.Client, cfg types.ProductConfig) *ProductSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ProductSource{client: client, cfg: cfg}
}

// Name identifies the source in run output.
func (s *ProductSource) Name() string { return "products" }

// Documents crawls the catalog and extracts every product page. Failures
// on individual product pages are collected; documents from surviving
// pages are returned alongside the joined error. A catalog fetch failure
// fails the whole source since no product list is known.
func (s *ProductSource) Documents(ctx context.Context) ([]types.Document, error) {
	urls, err := s.productURLs(ctx)
	if err != nil {
		return nil, err
	}

	var docs []types.Document
	var errs []error
	for _, productURL := range urls {
		doc, err := s.fetchProduct(ctx, productURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", productSlug(productURL), err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errors.Join(errs...)
}

// productURLs walks the catalog listing, following next-page links up to
// the configured page limit, and returns the deduplicated product URLs.
func (s *ProductSource) productURLs(ctx context.Context) ([]string, error) {
	maxPages := s.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxCatalogPages
	}

	seen := make(map[string]bool)
	var urls []string

	pageURL := s.cfg.CatalogURL
	for page := 1; page <= maxPages && pageURL != ""; page++ {
		html, err := fetchHTML(ctx, s.client, s.cfg.UserAgent, pageURL)
		if err != nil {
			return nil, fmt.Errorf("catalog page %d: %w", page, err)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("catalog page %d: parsing HTML: %w", page, err)
		}

		base, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("catalog page %d: %w", page, err)
		}

		found := 0
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if !strings.Contains(href, "/products/") || strings.Contains(href, "?") {
				return
			}
			resolved := resolveURL(base, href)
			if resolved == "" || seen[resolved] {
				return
			}
			seen[resolved] = true
			urls = append(urls, resolved)
			found++
		})
		if found == 0 {
			break
		}

		pageURL = ""
		if next, ok := doc.Find("a.pagination__item--next").First().Attr("href"); ok {
			pageURL = resolveURL(base, next)
		}
	}
	return urls, nil
}

func (s *ProductSource) fetchProduct(ctx context.Context, productURL string) (types.Document, error) {
	html, err := fetchHTML(ctx, s.client, s.cfg.UserAgent, productURL)
	if err != nil {
		return types.Document{}, err
	}

	info, err := ExtractProduct(html, productURL)
	if err != nil {
		return types.Document{}, err
	}

	return types.Document{
		ID:    ProductIDPrefix + productSlug(productURL),
		Title: info.FullName,
		Body:  info.Render(productURL),
		Kind:  types.KindProduct,
	}, nil
}

// ProductInfo holds the fields extracted from one product detail page.
type ProductInfo struct {
	Name         string
	FullName     string
	Price        string
	PricePerKilo string
	SpecialOffer string
	Description  string
	Availability string
}

// Render formats the product as knowledge-base text.
func (p ProductInfo) Render(productURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRODUCT: %s\n", p.FullName)
	fmt.Fprintf(&b, "URL: %s\n", productURL)
	price := p.Price
	if price == "" {
		price = "Price not available"
	}
	fmt.Fprintf(&b, "PRICE: %s\n", price)
	if p.PricePerKilo != "" {
		fmt.Fprintf(&b, "PRICE PER KILO: %s\n", p.PricePerKilo)
	}
	if p.SpecialOffer != "" {
		fmt.Fprintf(&b, "SPECIAL OFFER: %s\n", p.SpecialOffer)
	}
	if p.Availability != "" {
		fmt.Fprintf(&b, "AVAILABILITY: %s\n", p.Availability)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "DESCRIPTION: %s\n", p.Description)
	}
	return b.String()
}

// ExtractProduct pulls the product fields out of a product detail page.
// The title comes from the page heading, falling back to the URL slug;
// prices prefer page metadata over visible elements.
func ExtractProduct(html, productURL string) (ProductInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ProductInfo{}, fmt.Errorf("parsing HTML: %w", err)
	}

	var info ProductInfo
	for _, selector := range []string{"h1.product__title", "h1.product-single__title", "h1"} {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			info.FullName = text
			break
		}
	}
	if info.FullName == "" {
		info.FullName = titleFromSlug(productSlug(productURL))
	}
	info.Name = baseName(info.FullName)

	if price := priceFromMetadata(doc); price != "" {
		info.Price = price
	} else if text := strings.TrimSpace(doc.Find(".product__price").First().Text()); text != "" {
		info.Price = cleanPrice(text)
	}

	info.PricePerKilo = pricePerKilo(doc)

	for _, selector := range []string{".product-badge", ".badge", ".sale-tag", ".card-badges__badge", ".discount-badge"} {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			info.SpecialOffer = text
			break
		}
	}

	info.Description = productDescription(doc)
	info.Availability = strings.TrimSpace(doc.Find(".product__availability, .product-availability").First().Text())

	return info, nil
}

// priceFromMetadata looks for the price in og:price:amount meta tags and
// embedded product JSON (price in cents) before falling back to visible
// elements.
func priceFromMetadata(doc *goquery.Document) string {
	if amount, ok := doc.Find(`meta[property="og:price:amount"]`).First().Attr("content"); ok && amount != "" {
		return "€" + amount
	}

	var price string
	doc.Find(`script[type="application/json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, `"price":`) {
			return true
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(text), &data); err != nil {
			return true
		}
		if cents, ok := data["price"].(float64); ok {
			price = fmt.Sprintf("€%.2f", cents/100)
			return false
		}
		return true
	})
	if price != "" {
		return price
	}

	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if match := reProductScript.FindStringSubmatch(sel.Text()); match != nil {
			price = "€" + match[1]
			return false
		}
		return true
	})
	return price
}

// pricePerKilo extracts the per-kilo price from the unit-price element or
// the data-unit-price attribute (cents).
func pricePerKilo(doc *goquery.Document) string {
	if text := normalizeText(doc.Find(".product__unit-price").First().Text()); text != "" {
		if match := rePricePerKilo.FindStringSubmatch(text); match != nil {
			return "€" + match[1] + "/kg"
		}
	}
	if attr, ok := doc.Find("[data-unit-price]").First().Attr("data-unit-price"); ok {
		if cents, err := strconv.ParseFloat(attr, 64); err == nil {
			return fmt.Sprintf("€%.2f/kg", cents/100)
		}
	}
	return ""
}

const maxDescriptionLen = 500

func productDescription(doc *goquery.Document) string {
	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	description = normalizeText(description)

	if description == "" {
		for _, selector := range []string{".product__description", ".product-single__description", ".rte"} {
			if text := normalizeText(doc.Find(selector).First().Text()); text != "" {
				description = text
				break
			}
		}
	}

	if len(description) > maxDescriptionLen {
		description = description[:maxDescriptionLen-3] + "..."
	}
	return description
}

// cleanPrice reduces raw price text to the price itself, preferring the
// "from" price on variant listings ("Von €29,90").
func cleanPrice(text string) string {
	text = normalizeText(text)
	if text == "" {
		return ""
	}
	if match := reFromPrice.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	if match := rePricePattern.FindString(text); match != "" {
		return match
	}
	return text
}

// productTypes maps recognizable product keywords to canonical base names,
// checked in order so more specific entries win.
var productTypes = []struct {
	keyword string
	name    string
}{
	{"burger patties", "Burger Patties"},
	{"ribeye", "Ribeye Steak"},
	{"rump", "Rump Steak"},
	{"flank", "Flank Steak"},
	{"tomahawk", "Tomahawk Steak"},
	{"t-bone", "T-Bone Steak"},
	{"tbone", "T-Bone Steak"},
	{"filet", "Filet Steak"},
	{"sirloin", "Sirloin Steak"},
	{"short ribs", "Short Ribs"},
	{"tafelspitz", "Tafelspitz"},
	{"picanha", "Picanha"},
	{"porterhouse", "Porterhouse Steak"},
	{"flat iron", "Flat Iron Steak"},
	{"osso buco", "Osso Buco"},
	{"brisket", "Brisket"},
	{"rinderbrust", "Rinderbrust"},
	{"hackfleisch", "Hackfleisch"},
	{"smashburger", "Smashburger"},
	{"chuck eye", "Chuck Eye Steak"},
	{"chuckeye", "Chuck Eye Steak"},
}

// Marketing qualifiers stripped when no product type matches.
var nameQualifiers = []string{
	"black angus", "dry aged", "freiland", "premium",
	"mutterkuhaufzucht", "farm direkt", "bbq", "beef", "steak",
}

// baseName reduces a full product name to the short name a customer would
// use: "Ribeye Steak Black Angus Dry Aged" becomes "Ribeye Steak".
func baseName(fullName string) string {
	lower := strings.ToLower(fullName)
	for _, pt := range productTypes {
		if strings.Contains(lower, pt.keyword) {
			return pt.name
		}
	}

	words := strings.Fields(fullName)
	if len(words) <= 3 {
		return fullName
	}

	var kept []string
	for _, word := range words {
		qualifier := false
		for _, q := range nameQualifiers {
			if strings.Contains(strings.ToLower(word), q) {
				qualifier = true
				break
			}
		}
		if !qualifier {
			kept = append(kept, word)
		}
	}
	if len(kept) == 0 {
		return strings.Join(words[:2], " ")
	}
	if len(kept) > 3 {
		kept = kept[:3]
	}
	return strings.Join(kept, " ")
}

func productSlug(productURL string) string {
	trimmed := strings.TrimRight(productURL, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}

func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
