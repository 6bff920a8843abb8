package olka

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var dkkRe = regexp.MustCompile(`(?i)(\d[\d\s.]*)\s?DKK`)

// ParsePackagePrice returns the price of the first "Billet + hotel" package on an event
// page. false means the page has no such package or no readable price.
func ParsePackagePrice(html string) (float64, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false, fmt.Errorf("parse event page: %w", err)
	}
	var text string
	doc.Find("div.package").EachWithBreak(func(_ int, pkg *goquery.Selection) bool {
		t := strings.ReplaceAll(pkg.Text(), "\u00a0", " ")
		if strings.Contains(strings.ToLower(t), "billet + hotel") {
			text = t
			return false
		}
		return true
	})
	if text == "" {
		return 0, false, nil
	}
	m := dkkRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false, nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m[1])
	price, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false, nil
	}
	return price, true, nil
}
