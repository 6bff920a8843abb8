package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

const (
	maxLabelLen  = 200
	maxSourceLen = 100
)

var (
	controlRe    = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// SanitizeOffer cleans the free-text fields a source scraped from a page. Labels and
// provider names lose control characters and repeated whitespace so that duplicates and
// label lengths compare on visible text only.
func SanitizeOffer(o *models.RawOffer) {
	if o == nil {
		return
	}
	o.MatchLabel = sanitizeString(o.MatchLabel, maxLabelLen)
	o.Source = sanitizeString(o.Source, maxSourceLen)
	o.Link = sanitizeLink(o.Link)
	if o.Nights < 0 {
		o.Nights = 0
	}
}

// sanitizeLink keeps absolute http(s) links only. The link is provenance, so a broken
// one is dropped rather than the offer.
func sanitizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return link
}

func sanitizeString(str string, maxLen int) string {
	// control characters become spaces so words either side stay apart
	sanitized := controlRe.ReplaceAllString(str, " ")
	sanitized = strings.TrimSpace(whitespaceRe.ReplaceAllString(sanitized, " "))

	if r := []rune(sanitized); len(r) > maxLen {
		sanitized = strings.TrimSpace(string(r[:maxLen]))
	}
	return sanitized
}
