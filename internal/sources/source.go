// Package sources defines the adapter contract every price source implements and the
// registry the orchestrator builds adapters from.
package sources

import (
	"context"
	"time"

	"github.com/Vodeneev/tripprices/internal/pkg/browser"
	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
)

// Source is one price provider. ResolveTargets maps a club to source-specific units of
// work; FetchOffers turns one unit into offers. Both may fail independently per call.
type Source interface {
	Name() string
	Limits() Limits
	ResolveTargets(ctx context.Context, entity models.CanonicalEntity) ([]Target, error)
	FetchOffers(ctx context.Context, target Target) ([]models.RawOffer, error)
}

// Limits is the resource budget of one source.
type Limits struct {
	Workers        int           // concurrent units
	UnitTimeout    time.Duration // per FetchOffers call
	ResolveTimeout time.Duration // per ResolveTargets call
	RatePerSecond  float64       // 0 = unlimited
}

// Target is one unit of fetch work, typically a page URL.
type Target struct {
	Entity models.CanonicalEntity
	Key    string // URL or other identifier, unique per source
	Label  string
	Meta   map[string]string
}

// Pages downloads static pages and feeds. A positive ttl lets the body be served from
// cache; concurrent requests for the same URL share one download.
type Pages interface {
	Get(ctx context.Context, url string, ttl time.Duration) ([]byte, error)
}

// Deps are the shared collaborators handed to every factory. All of them are safe for
// concurrent use and read-only during a run.
type Deps struct {
	Clubs   *normalize.Registry
	Pages   Pages
	Browser browser.Loader
}

// WithConfig applies configured overrides on top of the limits an adapter declares.
func (l Limits) WithConfig(sc config.SourceConfig) Limits {
	if sc.Workers > 0 {
		l.Workers = sc.Workers
	}
	if sc.UnitTimeout > 0 {
		l.UnitTimeout = sc.UnitTimeout
	}
	if sc.ResolveTimeout > 0 {
		l.ResolveTimeout = sc.ResolveTimeout
	}
	if sc.RatePerSecond > 0 {
		l.RatePerSecond = sc.RatePerSecond
	}
	return l.Normalized()
}

// Normalized fills zero fields with the global defaults.
func (l Limits) Normalized() Limits {
	if l.Workers <= 0 {
		l.Workers = 1
	}
	if l.UnitTimeout <= 0 {
		l.UnitTimeout = config.DefaultUnitTimeout
	}
	if l.ResolveTimeout <= 0 {
		l.ResolveTimeout = config.DefaultResolveTimeout
	}
	return l
}
