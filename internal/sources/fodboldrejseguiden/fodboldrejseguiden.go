// Package fodboldrejseguiden scrapes the Fodboldrejseguiden.dk comparison site. It is an
// aggregator: every package row names the travel agency selling it, and that agency
// becomes the offer's source column.
package fodboldrejseguiden

import (
	"context"
	"errors"
	"time"

	"github.com/Vodeneev/tripprices/internal/pkg/browser"
	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/sources"
)

const (
	Name           = "fodboldrejseguiden"
	DefaultBaseURL = "https://www.fodboldrejseguiden.dk/fodboldrejser-england/"
)

// openToggles accepts the OneTrust banner and expands every fixture's package list.
const openToggles = `const consent = document.getElementById('onetrust-accept-btn-handler');
if (consent) { consent.click(); }
document.querySelectorAll('.togglemodule .koebsknap.toggle').forEach(b => b.click());`

func init() {
	sources.Register(Name, New)
}

type Source struct {
	baseURL string
	dirTTL  time.Duration
	limits  sources.Limits
	clubs   *normalize.Registry
	pages   sources.Pages
	browser browser.Loader
}

func New(cfg *config.Config, deps sources.Deps) sources.Source {
	sc := cfg.Source(Name)
	baseURL := sc.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Source{
		baseURL: baseURL,
		dirTTL:  cfg.Cache.DirectoryTTL,
		limits: sources.Limits{
			Workers:        3,
			UnitTimeout:    90 * time.Second,
			ResolveTimeout: 30 * time.Second,
		}.WithConfig(sc),
		clubs:   deps.Clubs,
		pages:   deps.Pages,
		browser: deps.Browser,
	}
}

func (s *Source) Name() string { return Name }

func (s *Source) Limits() sources.Limits { return s.limits }

// ResolveTargets looks the club up in the cached club directory. A club the site does
// not list yields no targets.
func (s *Source) ResolveTargets(ctx context.Context, entity models.CanonicalEntity) ([]sources.Target, error) {
	body, err := s.pages.Get(ctx, s.baseURL, s.dirTTL)
	if err != nil {
		return nil, err
	}
	dir, err := ParseDirectory(body, s.baseURL)
	if err != nil {
		return nil, sources.Permanent(err)
	}
	url, ok := normalize.LookupIn(s.clubs, dir, entity)
	if !ok {
		return nil, nil
	}
	return []sources.Target{{Entity: entity, Key: url, Label: entity.Name}}, nil
}

func (s *Source) FetchOffers(ctx context.Context, t sources.Target) ([]models.RawOffer, error) {
	if s.browser == nil {
		return nil, sources.Permanent(errors.New("no browser configured"))
	}
	html, err := s.browser.Render(ctx, browser.Request{
		URL:    t.Key,
		Script: openToggles,
		Scroll: true,
		Settle: 2 * time.Second,
	})
	if err != nil {
		return nil, sources.Transient(err)
	}
	rows, err := ParseClubPage(html, t.Key)
	if err != nil {
		return nil, sources.Permanent(err)
	}

	offers := make([]models.RawOffer, 0, len(rows))
	for _, r := range rows {
		label := r.Title
		if label == "" {
			label = t.Entity.Name
		}
		offers = append(offers, models.RawOffer{
			Entity:     t.Entity,
			MatchLabel: label,
			EventDate:  r.Date,
			Price:      r.Price,
			Nights:     r.Nights,
			Source:     r.Provider,
			Link:       r.Link,
		})
	}
	return offers, nil
}
