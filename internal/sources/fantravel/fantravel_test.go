package fantravel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/tripprices/internal/pkg/browser"
	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/sources"
)

const homeHTML = `<html><body>
<div class="fantravel-leagues-dropdown">
  <a href="#">Premier League</a>
  <a href="/fodboldrejser/tottenham/">Tottenham</a>
  <a href="https://fantravel.dk/fodboldrejser/arsenal/">Arsenal</a>
</div>
</body></html>`

const clubHTML = `<html><body>
<div class="drag_scroll">
  <a class="drag_scroll_item" href="/fodboldrejser/tottenham/">Alle kampe</a>
  <a class="drag_scroll_item" href="/fodboldrejser/tottenham/?vis-kun-hjemmekampe=1">Vis kun hjemmekampe</a>
</div>
<a class="product_table_single" href="/rejse/tottenham-chelsea/">Tottenham - Chelsea</a>
</body></html>`

const homeOnlyHTML = `<html><body>
<a class="product_table_single" href="/rejse/tottenham-arsenal/">Tottenham - Arsenal</a>
<a class="product_table_single" href="/rejse/tottenham-everton/">Tottenham - Everton</a>
<a class="product_table_single" href="/rejse/tottenham-arsenal/">Tottenham - Arsenal</a>
</body></html>`

const matchHTML = `<html><body>
<h1 class="booking-title">Book din fodboldrejse til
   Tottenham - Arsenal</h1>
<div class="package-option package-ticket"><span class="woocommerce-Price-amount"><bdi>995,00&nbsp;kr.</bdi></span></div>
<div class="package-option package-hotel">
  <span class="woocommerce-Price-amount"><bdi>2.895,00&nbsp;kr.</bdi></span>
  <ul>
    <li>Billet til kampen</li>
    <li>Hotelophold fra 28. februar til 2. marts 2026</li>
  </ul>
</div>
</body></html>`

func TestParseDirectory(t *testing.T) {
	dir, err := ParseDirectory([]byte(homeHTML), DefaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, map[normalize.Key]string{
		"tottenham": "https://fantravel.dk/fodboldrejser/tottenham/",
		"arsenal":   "https://fantravel.dk/fodboldrejser/arsenal/",
	}, dir)
}

func TestHomeOnlyLinkAndMatchLinks(t *testing.T) {
	const clubURL = "https://fantravel.dk/fodboldrejser/tottenham/"
	link, ok, err := HomeOnlyLink(clubHTML, clubURL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://fantravel.dk/fodboldrejser/tottenham/?vis-kun-hjemmekampe=1", link)

	_, ok, err = HomeOnlyLink(homeOnlyHTML, clubURL)
	require.NoError(t, err)
	assert.False(t, ok)

	links, err := MatchLinks(homeOnlyHTML, link)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://fantravel.dk/rejse/tottenham-arsenal/",
		"https://fantravel.dk/rejse/tottenham-everton/",
	}, links)
}

func TestParseMatchPage(t *testing.T) {
	page, err := ParseMatchPage(matchHTML, 2025)
	require.NoError(t, err)
	assert.Equal(t, "Tottenham - Arsenal", page.Title)
	assert.True(t, page.HasPrice)
	assert.Equal(t, 2895.0, page.Price, "the hotel package, not the ticket-only price")
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), page.CheckIn)
	assert.Equal(t, 2, page.Nights)

	empty, err := ParseMatchPage(`<html><body><h1 class="booking-title">x</h1></body></html>`, 2026)
	require.NoError(t, err)
	assert.False(t, empty.HasPrice)
	assert.True(t, empty.CheckIn.IsZero())
}

type fakePages struct{ body string }

func (f fakePages) Get(context.Context, string, time.Duration) ([]byte, error) {
	return []byte(f.body), nil
}

// fakeLoader serves fixture HTML by URL.
type fakeLoader struct {
	pages    map[string]string
	rendered []string
}

func (f *fakeLoader) Render(_ context.Context, req browser.Request) (string, error) {
	f.rendered = append(f.rendered, req.URL)
	return f.pages[req.URL], nil
}

func newSource(t *testing.T, loader *fakeLoader) *Source {
	t.Helper()
	clubs, err := normalize.NewRegistry(normalize.DefaultClubs)
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	s := New(cfg, sources.Deps{Clubs: clubs, Pages: fakePages{body: homeHTML}, Browser: loader}).(*Source)
	s.now = func() time.Time { return time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestResolveTargets(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		"https://fantravel.dk/fodboldrejser/tottenham/":                        clubHTML,
		"https://fantravel.dk/fodboldrejser/tottenham/?vis-kun-hjemmekampe=1": homeOnlyHTML,
	}}
	s := newSource(t, loader)
	tot := models.CanonicalEntity{ID: "tottenham", Name: "Tottenham"}

	targets, err := s.ResolveTargets(context.Background(), tot)
	require.NoError(t, err)
	require.Len(t, targets, 2, "home fixtures only")
	assert.Equal(t, "https://fantravel.dk/rejse/tottenham-arsenal/", targets[0].Key)
	assert.Equal(t, tot, targets[1].Entity)
	assert.Len(t, loader.rendered, 2)

	targets, err = s.ResolveTargets(context.Background(), models.CanonicalEntity{ID: "chelsea", Name: "Chelsea"})
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestFetchOffers(t *testing.T) {
	const url = "https://fantravel.dk/rejse/tottenham-arsenal/"
	s := newSource(t, &fakeLoader{pages: map[string]string{url: matchHTML}})
	tot := models.CanonicalEntity{ID: "tottenham", Name: "Tottenham"}

	offers, err := s.FetchOffers(context.Background(), sources.Target{Entity: tot, Key: url})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, models.RawOffer{
		Entity:     tot,
		MatchLabel: "Tottenham - Arsenal",
		EventDate:  time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		Price:      2895,
		Nights:     2,
		Source:     Name,
		Link:       url,
	}, offers[0])

	offers, err = s.FetchOffers(context.Background(), sources.Target{Entity: tot, Key: "https://fantravel.dk/none/"})
	require.NoError(t, err)
	assert.Empty(t, offers, "a page without a hotel price yields nothing")
}
