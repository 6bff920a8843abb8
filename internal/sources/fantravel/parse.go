package fantravel

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/pkg/textparse"
	"github.com/Vodeneev/tripprices/internal/sources/web"
)

const titlePrefix = "Book din fodboldrejse til"

// MatchPage is what one fixture page yields for the ticket plus hotel package.
type MatchPage struct {
	Title    string
	Price    float64
	HasPrice bool
	CheckIn  time.Time // zero when the stay line is missing
	Nights   int
}

// ParseDirectory maps normalized club names from the leagues dropdown to club page URLs.
func ParseDirectory(html []byte, baseURL string) (map[normalize.Key]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	dir := make(map[normalize.Key]string)
	doc.Find(".fantravel-leagues-dropdown a").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		key := normalize.Normalize(a.Text())
		if href == "" || href == "#" || key == "" {
			return
		}
		if _, dup := dir[key]; !dup {
			dir[key] = web.Resolve(baseURL, href)
		}
	})
	return dir, nil
}

// HomeOnlyLink returns the club page's "home matches only" filter link.
func HomeOnlyLink(html, pageURL string) (string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false, fmt.Errorf("parse club page: %w", err)
	}
	href, ok := doc.Find(`a.drag_scroll_item[href*="vis-kun-hjemmekampe"]`).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false, nil
	}
	return web.Resolve(pageURL, href), true, nil
}

// MatchLinks lists the fixture pages linked from a club page, in page order without repeats.
func MatchLinks(html, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse club page: %w", err)
	}
	var links []string
	seen := make(map[string]struct{})
	doc.Find("a.product_table_single").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		u := web.Resolve(pageURL, href)
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		links = append(links, u)
	})
	return links, nil
}

// ParseMatchPage reads the booking title, the hotel package price and the
// "Hotelophold fra X til Y" line. defaultYear fills dates printed without a year.
func ParseMatchPage(html string, defaultYear int) (MatchPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return MatchPage{}, fmt.Errorf("parse match page: %w", err)
	}

	var page MatchPage
	title := strings.TrimSpace(doc.Find(".booking-title").First().Text())
	title = strings.TrimSpace(strings.Replace(title, titlePrefix, "", 1))
	page.Title = strings.Join(strings.Fields(title), " ")

	priceText := doc.Find(".package-option.package-hotel .woocommerce-Price-amount bdi").First().Text()
	page.Price, page.HasPrice = textparse.ParsePrice(priceText)

	doc.Find(`div[class*="package-hotel"] li`).EachWithBreak(func(_ int, li *goquery.Selection) bool {
		text := strings.Join(strings.Fields(li.Text()), " ")
		if !strings.Contains(text, "Hotelophold fra") {
			return true
		}
		if in, nights, ok := textparse.ParseStay(text, defaultYear); ok {
			page.CheckIn = in
			page.Nights = nights
		}
		return false
	})
	return page, nil
}
