// Package footballtravel reads the FootballTravel.dk offers feed. It is the primary
// source: one CSV download serves every selected club.
package footballtravel

import (
	"context"
	"time"

	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/sources"
)

const Name = "footballtravel"

func init() {
	sources.Register(Name, New)
}

type Source struct {
	feedURL    string
	feedTTL    time.Duration
	noiseFloor float64
	limits     sources.Limits
	clubs      *normalize.Registry
	pages      sources.Pages
}

func New(cfg *config.Config, deps sources.Deps) sources.Source {
	sc := cfg.Source(Name)
	feedURL := sc.FeedURL
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	return &Source{
		feedURL:    feedURL,
		feedTTL:    cfg.Cache.DirectoryTTL,
		noiseFloor: cfg.Comparator.NoiseFloor,
		limits: sources.Limits{
			Workers:        1,
			UnitTimeout:    60 * time.Second,
			ResolveTimeout: 10 * time.Second,
		}.WithConfig(sc),
		clubs: deps.Clubs,
		pages: deps.Pages,
	}
}

func (s *Source) Name() string { return Name }

func (s *Source) Limits() sources.Limits { return s.limits }

// ResolveTargets yields one unit per club; the feed is filtered when it is read.
func (s *Source) ResolveTargets(_ context.Context, entity models.CanonicalEntity) ([]sources.Target, error) {
	return []sources.Target{{
		Entity: entity,
		Key:    s.feedURL,
		Label:  entity.Name,
	}}, nil
}

func (s *Source) FetchOffers(ctx context.Context, t sources.Target) ([]models.RawOffer, error) {
	rows, err := LoadFeed(ctx, s.pages, s.feedURL, s.feedTTL)
	if err != nil {
		return nil, err
	}
	return s.offersFor(t.Entity, rows), nil
}

func (s *Source) offersFor(entity models.CanonicalEntity, rows []FeedRow) []models.RawOffer {
	var offers []models.RawOffer
	for _, r := range rows {
		if !r.IsHotelPackage() || r.Price < s.noiseFloor {
			continue
		}
		if !s.clubs.Matches(entity, r.Club) {
			continue
		}
		offers = append(offers, models.RawOffer{
			Entity:     entity,
			MatchLabel: r.Label(),
			EventDate:  r.Date,
			Price:      r.Price,
			Nights:     r.Nights,
			Source:     Name,
		})
	}
	return offers
}
