package fodboldrejseguiden

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

// PackageRow is one provider line inside a fixture's hotel package table.
type PackageRow struct {
	Title    string
	Date     time.Time // zero when data-date is missing or unparseable
	Provider string
	Price    float64
	Nights   int
	Link     string
}

// ParseDirectory maps normalized club names from the #klubber block to absolute club page URLs.
func ParseDirectory(html []byte, baseURL string) (map[normalize.Key]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	dir := make(map[normalize.Key]string)
	doc.Find("#klubber a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		key := normalize.Normalize(a.Text())
		if key == "" {
			return
		}
		if _, dup := dir[key]; !dup {
			dir[key] = web.Resolve(baseURL, href)
		}
	})
	return dir, nil
}

// ParseClubPage extracts every home fixture's hotel-only package rows. Packages that
// include flights and "request an offer" links carry no comparable price and are skipped.
func ParseClubPage(html string, pageURL string) ([]PackageRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse club page: %w", err)
	}

	var rows []PackageRow
	doc.Find(".match").Each(func(_ int, match *goquery.Selection) {
		if strings.EqualFold(strings.TrimSpace(match.AttrOr("data-is-away", "")), "true") {
			return
		}
		title := matchTitle(match)
		date, _ := textparse.ParseDayFirst(match.AttrOr("data-date", ""))

		match.Find(".packageholder .table-outer").Each(func(_ int, group *goquery.Selection) {
			header := strings.ToLower(strings.TrimSpace(group.Find("span.pack").First().Text()))
			if strings.Contains(header, "fly") || !strings.Contains(header, "hotel") {
				return
			}
			group.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
				row, ok := parseRow(tr, pageURL)
				if !ok {
					return
				}
				row.Title = title
				row.Date = date
				rows = append(rows, row)
			})
		})
	})
	return rows, nil
}

func matchTitle(match *goquery.Selection) string {
	title := strings.TrimSpace(match.Find(".toggle_title").First().Text())
	if i := strings.Index(strings.ToLower(title), "fra kr"); i >= 0 {
		title = title[:i]
	}
	return strings.Join(strings.Fields(title), " ")
}

func parseRow(tr *goquery.Selection, pageURL string) (PackageRow, bool) {
	provider := strings.TrimSpace(tr.Find("td").First().Text())
	btn := tr.Find(".koebsknap").First()
	href := strings.TrimSpace(btn.AttrOr("href", ""))
	if provider == "" || href == "" || strings.Contains(href, "bestil-tilbud") {
		return PackageRow{}, false
	}
	price, ok := textparse.ParsePrice(btn.Text())
	if !ok {
		return PackageRow{}, false
	}
	nights := textparse.FirstInt(tr.Find(".nightsamount").First().Text())
	return PackageRow{
		Provider: provider,
		Price:    price,
		Nights:   nights,
		Link:     web.Resolve(pageURL, href),
	}, true
}
