// Package olka prices Olka Express event pages. Olka has no club directory, so event URLs
// are built from the fixtures in the FootballTravel feed.
package olka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Vodeneev/tripprices/internal/pkg/browser"
	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/sources"
	"github.com/Vodeneev/tripprices/internal/sources/footballtravel"
)

const (
	Name               = "olka"
	DefaultURLTemplate = "https://olka.dk/event/soccer/{date}-{home}-{away}/"
	// Olka sells fixed two-night packages.
	packageNights = 2
)

var cookieTexts = []string{"godkend", "allow all", "accepter"}

func init() {
	sources.Register(Name, New)
}

type Source struct {
	feedURL     string
	feedTTL     time.Duration
	urlTemplate string
	limits      sources.Limits
	clubs       *normalize.Registry
	slugs       *Slugger
	pages       sources.Pages
	browser     browser.Loader
}

func New(cfg *config.Config, deps sources.Deps) sources.Source {
	sc := cfg.Source(Name)
	feedURL := sc.FeedURL
	if feedURL == "" {
		feedURL = cfg.Source(footballtravel.Name).FeedURL
	}
	if feedURL == "" {
		feedURL = footballtravel.DefaultFeedURL
	}
	tmpl := sc.URLTemplate
	if tmpl == "" {
		tmpl = DefaultURLTemplate
	}
	return &Source{
		feedURL:     feedURL,
		feedTTL:     cfg.Cache.DirectoryTTL,
		urlTemplate: tmpl,
		limits: sources.Limits{
			Workers:        1,
			UnitTimeout:    60 * time.Second,
			ResolveTimeout: 30 * time.Second,
			RatePerSecond:  1,
		}.WithConfig(sc),
		clubs:   deps.Clubs,
		slugs:   NewSlugger(deps.Clubs, sc.Slugs),
		pages:   deps.Pages,
		browser: deps.Browser,
	}
}

func (s *Source) Name() string { return Name }

func (s *Source) Limits() sources.Limits { return s.limits }

// EventURL fills the URL template for one fixture.
func (s *Source) EventURL(date time.Time, home, away string) string {
	return strings.NewReplacer(
		"{date}", date.Format("2006-01-02"),
		"{home}", s.slugs.Slug(home, true),
		"{away}", s.slugs.Slug(away, false),
	).Replace(s.urlTemplate)
}

// ResolveTargets builds one event URL per dated home fixture of the club in the feed.
func (s *Source) ResolveTargets(ctx context.Context, entity models.CanonicalEntity) ([]sources.Target, error) {
	rows, err := footballtravel.LoadFeed(ctx, s.pages, s.feedURL, s.feedTTL)
	if err != nil {
		return nil, err
	}
	var targets []sources.Target
	seen := make(map[string]struct{})
	for _, r := range rows {
		if !r.IsHotelPackage() || r.Date.IsZero() || !s.clubs.Matches(entity, r.Club) {
			continue
		}
		url := s.EventURL(r.Date, r.Club, r.Opponent)
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		targets = append(targets, sources.Target{
			Entity: entity,
			Key:    url,
			Label:  r.Label(),
			Meta:   map[string]string{"date": r.Date.Format("2006-01-02")},
		})
	}
	return targets, nil
}

func (s *Source) FetchOffers(ctx context.Context, t sources.Target) ([]models.RawOffer, error) {
	if s.browser == nil {
		return nil, sources.Permanent(errors.New("no browser configured"))
	}
	html, err := s.browser.Render(ctx, browser.Request{
		URL:         t.Key,
		CookieTexts: cookieTexts,
		Settle:      700 * time.Millisecond,
	})
	if err != nil {
		return nil, sources.Transient(err)
	}
	price, ok, err := ParsePackagePrice(html)
	if err != nil {
		return nil, sources.Permanent(err)
	}
	if !ok {
		return nil, nil
	}
	date, _ := time.Parse("2006-01-02", t.Meta["date"])
	return []models.RawOffer{{
		Entity:     t.Entity,
		MatchLabel: t.Label,
		EventDate:  date,
		Price:      price,
		Nights:     packageNights,
		Source:     Name,
		Link:       t.Key,
	}}, nil
}
