// Package fantravel scrapes Fantravel.dk. Club pages are walked in a browser to collect
// fixture links; each fixture page is one unit of work.
package fantravel

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
	Name           = "fantravel"
	DefaultBaseURL = "https://fantravel.dk/"
)

var cookieTexts = []string{"kun nødvendige", "afvis"}

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
	now     func() time.Time
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
			Workers:        4,
			UnitTimeout:    60 * time.Second,
			ResolveTimeout: 90 * time.Second,
		}.WithConfig(sc),
		clubs:   deps.Clubs,
		pages:   deps.Pages,
		browser: deps.Browser,
		now:     time.Now,
	}
}

func (s *Source) Name() string { return Name }

func (s *Source) Limits() sources.Limits { return s.limits }

// ResolveTargets finds the club in the leagues dropdown, narrows its page to home
// fixtures when the filter link exists, and returns one target per fixture page.
func (s *Source) ResolveTargets(ctx context.Context, entity models.CanonicalEntity) ([]sources.Target, error) {
	body, err := s.pages.Get(ctx, s.baseURL, s.dirTTL)
	if err != nil {
		return nil, err
	}
	dir, err := ParseDirectory(body, s.baseURL)
	if err != nil {
		return nil, sources.Permanent(err)
	}
	clubURL, ok := normalize.LookupIn(s.clubs, dir, entity)
	if !ok {
		return nil, nil
	}
	if s.browser == nil {
		return nil, sources.Permanent(errors.New("no browser configured"))
	}

	html, err := s.render(ctx, clubURL)
	if err != nil {
		return nil, err
	}
	listURL := clubURL
	homeURL, ok, err := HomeOnlyLink(html, clubURL)
	if err != nil {
		return nil, sources.Permanent(err)
	}
	if ok {
		if html, err = s.render(ctx, homeURL); err != nil {
			return nil, err
		}
		listURL = homeURL
	}

	links, err := MatchLinks(html, listURL)
	if err != nil {
		return nil, sources.Permanent(err)
	}
	targets := make([]sources.Target, 0, len(links))
	for _, link := range links {
		targets = append(targets, sources.Target{Entity: entity, Key: link, Label: entity.Name})
	}
	return targets, nil
}

func (s *Source) FetchOffers(ctx context.Context, t sources.Target) ([]models.RawOffer, error) {
	if s.browser == nil {
		return nil, sources.Permanent(errors.New("no browser configured"))
	}
	html, err := s.render(ctx, t.Key)
	if err != nil {
		return nil, err
	}
	page, err := ParseMatchPage(html, s.now().Year())
	if err != nil {
		return nil, sources.Permanent(err)
	}
	if !page.HasPrice {
		return nil, nil
	}
	label := page.Title
	if label == "" {
		label = t.Entity.Name + " Match"
	}
	return []models.RawOffer{{
		Entity:     t.Entity,
		MatchLabel: label,
		EventDate:  page.CheckIn,
		Price:      page.Price,
		Nights:     page.Nights,
		Source:     Name,
		Link:       t.Key,
	}}, nil
}

func (s *Source) render(ctx context.Context, url string) (string, error) {
	html, err := s.browser.Render(ctx, browser.Request{
		URL:         url,
		CookieTexts: cookieTexts,
		Settle:      time.Second,
	})
	if err != nil {
		return "", sources.Transient(err)
	}
	return html, nil
}
