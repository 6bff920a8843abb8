package fodboldrejseguiden

import (
	"context"
	"errors"
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

const directoryHTML = `<html><body>
<nav><a href="/om-os/">Om os</a></nav>
<section id="klubber">
  <a href="tottenham-hotspur/">Tottenham Hotspur</a>
  <a href="https://www.fodboldrejseguiden.dk/fodboldrejser-england/arsenal/">Arsenal FC</a>
  <a href="">Empty</a>
</section>
</body></html>`

const clubHTML = `<html><body>
<div class="match" data-date="2026-03-01" data-is-away="false">
  <div class="toggle_title">Tottenham - Arsenal fra kr. 2.195</div>
  <div class="togglemodule"><a class="koebsknap toggle">Se priser</a></div>
  <div class="packageholder">
    <div class="table-outer">
      <span class="pack">Billet + Hotel</span>
      <table><tbody>
        <tr><td>Football Travel</td><td><a class="koebsknap" href="https://footballtravel.dk/x">2.495 kr.</a></td><td class="nightsamount">2 nætter</td></tr>
        <tr><td>Fantravel</td><td><a class="koebsknap" href="/go/fantravel/123">2.195 kr.</a></td><td class="nightsamount">3 nætter</td></tr>
        <tr><td>Olka Express</td><td><a class="koebsknap" href="https://www.fodboldrejseguiden.dk/bestil-tilbud/">Bestil tilbud</a></td></tr>
      </tbody></table>
    </div>
    <div class="table-outer">
      <span class="pack">Fly + Billet + Hotel</span>
      <table><tbody>
        <tr><td>Nordic Football</td><td><a class="koebsknap" href="https://nft.test/fly">5.995 kr.</a></td><td class="nightsamount">2</td></tr>
      </tbody></table>
    </div>
    <div class="table-outer">
      <span class="pack">Kun billet</span>
      <table><tbody>
        <tr><td>Ticketshop</td><td><a class="koebsknap" href="https://t.test">995 kr.</a></td></tr>
      </tbody></table>
    </div>
  </div>
</div>
<div class="match" data-date="2026-03-14" data-is-away="true">
  <div class="toggle_title">Chelsea - Tottenham fra kr. 3.000</div>
  <div class="packageholder"><div class="table-outer"><span class="pack">Billet + hotel</span>
    <table><tbody><tr><td>Fantravel</td><td><a class="koebsknap" href="/a">3.000 kr.</a></td></tr></tbody></table>
  </div></div>
</div>
<div class="match">
  <div class="toggle_title">Tottenham - Everton</div>
  <div class="packageholder"><div class="table-outer"><span class="pack">Billet + hotel</span>
    <table><tbody><tr><td>Fantravel</td><td><a class="koebsknap" href="/b">1.995 kr.</a></td></tr></tbody></table>
  </div></div>
</div>
</body></html>`

const pageURL = "https://www.fodboldrejseguiden.dk/fodboldrejser-england/tottenham-hotspur/"

func TestParseDirectory(t *testing.T) {
	dir, err := ParseDirectory([]byte(directoryHTML), DefaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, map[normalize.Key]string{
		"tottenham hotspur": pageURL,
		"arsenal":           "https://www.fodboldrejseguiden.dk/fodboldrejser-england/arsenal/",
	}, dir)
}

func TestParseClubPage(t *testing.T) {
	rows, err := ParseClubPage(clubHTML, pageURL)
	require.NoError(t, err)
	require.Len(t, rows, 3, "away fixtures, flight packages, ticket-only packages and request links are skipped")

	assert.Equal(t, PackageRow{
		Title:    "Tottenham - Arsenal",
		Date:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Provider: "Football Travel",
		Price:    2495,
		Nights:   2,
		Link:     "https://footballtravel.dk/x",
	}, rows[0])

	assert.Equal(t, "Fantravel", rows[1].Provider)
	assert.Equal(t, 2195.0, rows[1].Price)
	assert.Equal(t, 3, rows[1].Nights)
	assert.Equal(t, "https://www.fodboldrejseguiden.dk/go/fantravel/123", rows[1].Link)

	assert.Equal(t, "Tottenham - Everton", rows[2].Title)
	assert.True(t, rows[2].Date.IsZero())
	assert.Equal(t, 0, rows[2].Nights)
}

type fakePages struct{ body string }

func (f fakePages) Get(context.Context, string, time.Duration) ([]byte, error) {
	return []byte(f.body), nil
}

type fakeLoader struct {
	html string
	err  error
	got  browser.Request
}

func (f *fakeLoader) Render(_ context.Context, req browser.Request) (string, error) {
	f.got = req
	return f.html, f.err
}

func newSource(t *testing.T, loader browser.Loader) *Source {
	t.Helper()
	clubs, err := normalize.NewRegistry(normalize.DefaultClubs)
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return New(cfg, sources.Deps{Clubs: clubs, Pages: fakePages{body: directoryHTML}, Browser: loader}).(*Source)
}

func TestResolveTargets(t *testing.T) {
	s := newSource(t, nil)

	targets, err := s.ResolveTargets(context.Background(), models.CanonicalEntity{ID: "tottenham", Name: "Tottenham"})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, pageURL, targets[0].Key, "found through the Tottenham Hotspur alias")

	targets, err = s.ResolveTargets(context.Background(), models.CanonicalEntity{ID: "chelsea", Name: "Chelsea"})
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestFetchOffers(t *testing.T) {
	loader := &fakeLoader{html: clubHTML}
	s := newSource(t, loader)
	tot := models.CanonicalEntity{ID: "tottenham", Name: "Tottenham"}

	offers, err := s.FetchOffers(context.Background(), sources.Target{Entity: tot, Key: pageURL})
	require.NoError(t, err)
	require.Len(t, offers, 3)

	assert.Equal(t, pageURL, loader.got.URL)
	assert.True(t, loader.got.Scroll)
	assert.Contains(t, loader.got.Script, "onetrust-accept-btn-handler")

	assert.Equal(t, "Football Travel", offers[0].Source, "provider names are canonicalized by the orchestrator")
	assert.Equal(t, tot, offers[0].Entity)
	assert.Equal(t, "Tottenham - Everton", offers[2].MatchLabel)
}

func TestFetchOffers_RenderFailureIsTransient(t *testing.T) {
	s := newSource(t, &fakeLoader{err: errors.New("net::ERR_CONNECTION_RESET")})
	_, err := s.FetchOffers(context.Background(), sources.Target{Key: pageURL})
	require.Error(t, err)
	assert.True(t, sources.IsTransient(err))

	_, err = newSource(t, nil).FetchOffers(context.Background(), sources.Target{Key: pageURL})
	require.Error(t, err)
	assert.False(t, sources.IsTransient(err))
}
