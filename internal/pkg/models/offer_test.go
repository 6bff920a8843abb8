package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRawOffer_HasPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  bool
	}{
		{1299, true},
		{0.5, true},
		{0, false},
		{-10, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := (RawOffer{Price: tt.price}).HasPrice(); got != tt.want {
			t.Errorf("HasPrice(%v) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestRawOffer_HasDate(t *testing.T) {
	assert.False(t, RawOffer{}.HasDate())
	assert.True(t, RawOffer{EventDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}.HasDate())
}

func TestRawOffer_DedupKey(t *testing.T) {
	spurs := CanonicalEntity{ID: "tottenham", Name: "Tottenham"}
	a := RawOffer{Entity: spurs, Source: "Fantravel", MatchLabel: "Tottenham – Arsenal ", Price: 1299}
	b := RawOffer{Entity: spurs, Source: " fantravel", MatchLabel: "Tottenham – Arsenal", Price: 1299, Link: "https://other"}
	assert.Equal(t, a.DedupKey(), b.DedupKey(), "link and whitespace do not make a row distinct")
	assert.Equal(t, "tottenham|fantravel|Tottenham – Arsenal|1299", a.DedupKey())

	c := b
	c.Price = 1299.5
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}

func TestCanonicalEntity_String(t *testing.T) {
	assert.Equal(t, "Tottenham", CanonicalEntity{ID: "tottenham", Name: "Tottenham"}.String())
	assert.Equal(t, "tottenham", CanonicalEntity{ID: "tottenham"}.String())
}
