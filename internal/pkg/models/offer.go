package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// CanonicalEntity is the stable identity of a club, independent of how a source spells it.
type CanonicalEntity struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

func (e CanonicalEntity) String() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// RawOffer is one scraped price record. Sources produce it, the correlator consumes it.
type RawOffer struct {
	Entity     CanonicalEntity `json:"entity"`
	MatchLabel string          `json:"match_label"`
	EventDate  time.Time       `json:"event_date"` // zero when the source gave no usable date
	Price      float64         `json:"price"`      // DKK; <= 0 means no usable price
	Nights     int             `json:"nights"`     // 0 = unknown
	Source     string          `json:"source"`     // provider column the price belongs to
	Origin     string          `json:"origin"`     // adapter that fetched the offer
	Link       string          `json:"link,omitempty"`
}

// HasDate reports whether the offer carries a parsed event date.
func (o RawOffer) HasDate() bool {
	return !o.EventDate.IsZero()
}

// HasPrice reports whether the price is a finite positive number.
func (o RawOffer) HasPrice() bool {
	return o.Price > 0 && !math.IsInf(o.Price, 0) && !math.IsNaN(o.Price)
}

// DedupKey identifies exact repeats of the same row from one source for one club.
// Format: "entity|source|label|price"
func (o RawOffer) DedupKey() string {
	return o.Entity.ID + "|" +
		strings.ToLower(strings.TrimSpace(o.Source)) + "|" +
		strings.TrimSpace(o.MatchLabel) + "|" +
		strconv.FormatFloat(o.Price, 'f', -1, 64)
}
