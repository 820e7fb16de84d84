// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/taurbull/kbsync/pkg/types"
)

const ribeyeProductHTML = `<!DOCTYPE html>
<html>
<head>
  <meta name="description" content="Unser Ribeye Steak &amp; mehr: Dry Aged vom Black Angus.">
  <meta property="og:price:amount" content="34.95">
</head>
<body>
  <h1 class="product__title">Ribeye Steak Black Angus Dry Aged</h1>
  <span class="product__unit-price">€69,90 / pro kg</span>
  <span class="card-badges__badge">Sale</span>
  <div class="product__availability">Auf Lager</div>
</body>
</html>`

const pattiesProductHTML = `<!DOCTYPE html>
<html>
<head></head>
<body>
  <h1>Dry Aged Burger Patties Black Angus Freiland</h1>
  <span class="product__price">Von €12,90 Regulärer Preis</span>
  <div class="product__description">
    Saftige Patties aus Dry Aged Beef.
  </div>
</body>
</html>`

func catalogHTML(links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, link := range links {
		fmt.Fprintf(&b, `<a href="%s">card</a>`, link)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestProductSource_Documents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/all":
			fmt.Fprint(w, catalogHTML("/products/ribeye-steak-black-angus-dry-aged", "/products/dry-aged-burger-patties"))
		case "/products/ribeye-steak-black-angus-dry-aged":
			fmt.Fprint(w, ribeyeProductHTML)
		case "/products/dry-aged-burger-patties":
			fmt.Fprint(w, pattiesProductHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	src := NewProductSource(ts.Client(), types.ProductConfig{CatalogURL: ts.URL + "/collections/all"})
	docs, err := src.Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Documents() = %d docs, want 2", len(docs))
	}

	ribeye := docs[0]
	if ribeye.ID != "product-ribeye-steak-black-angus-dry-aged" || ribeye.Kind != types.KindProduct {
		t.Errorf("docs[0] = %+v, want ribeye product document", ribeye)
	}
	for _, want := range []string{
		"PRODUCT: Ribeye Steak Black Angus Dry Aged",
		"PRICE: €34.95",
		"PRICE PER KILO: €69,90/kg",
		"SPECIAL OFFER: Sale",
		"AVAILABILITY: Auf Lager",
		"DESCRIPTION: Unser Ribeye Steak & mehr: Dry Aged vom Black Angus.",
	} {
		if !strings.Contains(ribeye.Body, want) {
			t.Errorf("ribeye body missing %q in:\n%s", want, ribeye.Body)
		}
	}

	patties := docs[1]
	if !strings.Contains(patties.Body, "PRICE: €12,90") {
		t.Errorf("patties body = %q, want from-price", patties.Body)
	}
	if !strings.Contains(patties.Body, "DESCRIPTION: Saftige Patties aus Dry Aged Beef.") {
		t.Errorf("patties body = %q, want element description fallback", patties.Body)
	}
}

func TestProductSource_FollowsPagination(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/all":
			fmt.Fprint(w, `<html><body>
				<a href="/products/first">card</a>
				<a class="pagination__item--next" href="/collections/all-page2">next</a>
			</body></html>`)
		case "/collections/all-page2":
			fmt.Fprint(w, catalogHTML("/products/second"))
		default:
			fmt.Fprintf(w, `<html><body><h1>%s</h1></body></html>`, strings.TrimPrefix(r.URL.Path, "/products/"))
		}
	}))
	defer ts.Close()

	src := NewProductSource(ts.Client(), types.ProductConfig{CatalogURL: ts.URL + "/collections/all"})
	docs, err := src.Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Documents() = %d docs, want products from both catalog pages", len(docs))
	}
	if docs[0].ID != "product-first" || docs[1].ID != "product-second" {
		t.Errorf("docs = %q, %q", docs[0].ID, docs[1].ID)
	}
}

func TestProductSource_FailedProductDoesNotBlockOthers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/all":
			fmt.Fprint(w, catalogHTML("/products/gone", "/products/ribeye-steak"))
		case "/products/ribeye-steak":
			fmt.Fprint(w, ribeyeProductHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	src := NewProductSource(ts.Client(), types.ProductConfig{CatalogURL: ts.URL + "/collections/all"})
	docs, err := src.Documents(context.Background())
	if err == nil {
		t.Error("Documents() error = nil, want error for missing product")
	}
	if len(docs) != 1 || docs[0].ID != "product-ribeye-steak" {
		t.Fatalf("Documents() = %+v, want surviving ribeye document", docs)
	}
}

func TestExtractProduct_MetadataPriceFromProductJSON(t *testing.T) {
	html := `<html><body>
		<h1>Flank Steak</h1>
		<script type="application/json">{"id": 1, "price": 2490}</script>
	</body></html>`

	info, err := ExtractProduct(html, "https://shop.example.com/products/flank-steak")
	if err != nil {
		t.Fatalf("ExtractProduct() error = %v", err)
	}
	if info.Price != "€24.90" {
		t.Errorf("Price = %q, want cents converted to euros", info.Price)
	}
	if info.Name != "Flank Steak" {
		t.Errorf("Name = %q", info.Name)
	}
}

func TestExtractProduct_NameFallsBackToSlug(t *testing.T) {
	info, err := ExtractProduct("<html><body></body></html>", "https://shop.example.com/products/tomahawk-steak-premium")
	if err != nil {
		t.Fatalf("ExtractProduct() error = %v", err)
	}
	if info.FullName != "Tomahawk Steak Premium" {
		t.Errorf("FullName = %q", info.FullName)
	}
	if info.Name != "Tomahawk Steak" {
		t.Errorf("Name = %q", info.Name)
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		fullName string
		want     string
	}{
		{"Ribeye Steak Black Angus Dry Aged", "Ribeye Steak"},
		{"Dry Aged Burger Patties Black Angus Freiland", "Burger Patties"},
		{"Picanha Premium Cut", "Picanha"},
		{"Tafelspitz", "Tafelspitz"},
		{"Geschenkbox Deluxe", "Geschenkbox Deluxe"},
	}
	for _, tt := range tests {
		if got := baseName(tt.fullName); got != tt.want {
			t.Errorf("baseName(%q) = %q, want %q", tt.fullName, got, tt.want)
		}
	}
}

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Von €29,90 Regulärer Preis €34,90", "€29,90"},
		{"  €19,90\n  ", "€19,90"},
		{"Sonderpreis €9,95 inkl. MwSt", "€9,95"},
		{"auf Anfrage", "auf Anfrage"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanPrice(tt.text); got != tt.want {
			t.Errorf("cleanPrice(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
