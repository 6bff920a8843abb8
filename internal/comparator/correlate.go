package comparator

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

// UndatedSentinel is the sort date given to offers without a usable event date. It keeps
// them in the deterministic order but far away from every real fixture.
var UndatedSentinel = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

// MatchGroup is a cluster of offers believed to be the same fixture.
type MatchGroup struct {
	Entity         models.CanonicalEntity     `json:"entity"`
	Label          string                     `json:"label"`
	Date           time.Time                  `json:"date"`      // earliest member date; zero when Undated
	LastDate       time.Time                  `json:"last_date"` // latest member date; zero when Undated
	Undated        bool                       `json:"undated"`
	OffersBySource map[string]models.RawOffer `json:"offers_by_source"`
	Members        int                        `json:"members"`
}

type CorrelateOptions struct {
	ToleranceDays int
	// NoiseFloor prefers a real price over a placeholder when choosing a source's best offer.
	NoiseFloor float64
	// Primary is the trust-anchor source. Offers in its column that were relayed by
	// another adapter are dropped; the primary speaks for itself.
	Primary string
}

type dated struct {
	offer models.RawOffer
	date  time.Time
}

// Correlate clusters offers into match groups, independently per club. Offers without a
// usable price are discarded. The result is ordered by club id, then date.
func Correlate(offers []models.RawOffer, opts CorrelateOptions) []MatchGroup {
	tolerance := time.Duration(opts.ToleranceDays) * 24 * time.Hour

	items := make([]dated, 0, len(offers))
	for _, o := range offers {
		if !o.HasPrice() {
			continue
		}
		if opts.Primary != "" && o.Source == opts.Primary && o.Origin != "" && o.Origin != opts.Primary {
			continue
		}
		d := UndatedSentinel
		if o.HasDate() {
			d = dayOf(o.EventDate)
		}
		items = append(items, dated{offer: o, date: d})
	}
	sortDated(items)

	var (
		groups  []MatchGroup
		members []dated
	)
	flush := func() {
		if len(members) > 0 {
			groups = append(groups, finalize(members, opts.NoiseFloor))
		}
		members = nil
	}
	for i, it := range items {
		if i > 0 {
			prev := items[i-1]
			newEntity := prev.offer.Entity.ID != it.offer.Entity.ID
			crossesSentinel := prev.date.Equal(UndatedSentinel) != it.date.Equal(UndatedSentinel)
			if newEntity || crossesSentinel || it.date.Sub(prev.date) > tolerance {
				flush()
			}
		}
		members = append(members, it)
	}
	flush()
	return groups
}

func finalize(members []dated, noiseFloor float64) MatchGroup {
	first := members[0]
	g := MatchGroup{
		Entity:         first.offer.Entity,
		OffersBySource: make(map[string]models.RawOffer),
		Members:        len(members),
	}
	if first.date.Equal(UndatedSentinel) {
		g.Undated = true
	} else {
		g.Date = first.date
		g.LastDate = members[len(members)-1].date
	}

	longest := -1
	for _, m := range members {
		label := strings.TrimSpace(m.offer.MatchLabel)
		if n := utf8.RuneCountInString(label); n > longest {
			longest = n
			g.Label = label
		}
		cur, ok := g.OffersBySource[m.offer.Source]
		if !ok || better(m.offer, cur, noiseFloor) {
			g.OffersBySource[m.offer.Source] = m.offer
		}
	}
	return g
}

// better reports whether a beats b as a source's representative offer: a price above the
// noise floor beats a placeholder, then the lower price wins. Equal offers keep b.
func better(a, b models.RawOffer, noiseFloor float64) bool {
	aReal, bReal := a.Price > noiseFloor, b.Price > noiseFloor
	if aReal != bReal {
		return aReal
	}
	return a.Price < b.Price
}

// sortDated orders offers totally so repeated runs over the same input agree.
func sortDated(items []dated) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.offer.Entity.ID != b.offer.Entity.ID {
			return a.offer.Entity.ID < b.offer.Entity.ID
		}
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		if a.offer.Source != b.offer.Source {
			return a.offer.Source < b.offer.Source
		}
		if a.offer.MatchLabel != b.offer.MatchLabel {
			return a.offer.MatchLabel < b.offer.MatchLabel
		}
		if a.offer.Price != b.offer.Price {
			return a.offer.Price < b.offer.Price
		}
		if a.offer.Nights != b.offer.Nights {
			return a.offer.Nights < b.offer.Nights
		}
		if a.offer.Link != b.offer.Link {
			return a.offer.Link < b.offer.Link
		}
		return a.offer.Origin < b.offer.Origin
	})
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
