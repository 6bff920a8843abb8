// Package comparator turns raw offers into the per-fixture price comparison: it clusters
// offers into match groups, pivots them into a source-by-match matrix and reports where
// the primary source is undercut.
package comparator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Vodeneev/tripprices/internal/fetcher"
	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/metrics"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/sources"
)

var (
	ErrNothingSelected = errors.New("comparator: no known club selected")
	ErrUnknownSource   = errors.New("comparator: unknown source")
)

// Fetcher is the part of fetcher.Fetcher the service needs.
type Fetcher interface {
	Fetch(ctx context.Context, entities []models.CanonicalEntity, srcs []sources.Source) (*fetcher.Result, error)
}

// Sink receives every finished comparison. Sink errors never fail the comparison.
type Sink interface {
	Publish(ctx context.Context, c *Comparison) error
}

type Options struct {
	ToleranceDays int
	NoiseFloor    float64
	Primary       string
	StrictNights  bool
	SourceOrder   []string
}

func OptionsFromConfig(cfg config.ComparatorConfig) Options {
	return Options{
		ToleranceDays: cfg.ToleranceDays,
		NoiseFloor:    cfg.NoiseFloor,
		Primary:       cfg.PrimarySource,
		StrictNights:  cfg.StrictNights,
		SourceOrder:   cfg.SourceOrder,
	}
}

// Request selects clubs and optionally narrows the sources of one comparison.
type Request struct {
	Clubs        []string `json:"clubs"`
	Sources      []string `json:"sources,omitempty"` // empty = every enabled source
	StrictNights *bool    `json:"strict_nights,omitempty"`
}

// Comparison is the outcome of one run.
type Comparison struct {
	RunID           string                   `json:"run_id"`
	StartedAt       time.Time                `json:"started_at"`
	Duration        time.Duration            `json:"duration"`
	Matrix          Matrix                   `json:"matrix"`
	Overpriced      []OverpricedRow          `json:"overpriced,omitempty"`
	Unmatched       []string                 `json:"unmatched,omitempty"`  // names no club resolved to
	Unresolved      []models.CanonicalEntity `json:"unresolved,omitempty"` // clubs no source had a page for
	Contributing    []string                 `json:"contributing"`
	Failed          []string                 `json:"failed,omitempty"`
	Units           []fetcher.UnitResult     `json:"units"`
	ResolveFailures []fetcher.ResolveFailure `json:"resolve_failures,omitempty"`
	Duplicates      int                      `json:"duplicates"`
}

type Service struct {
	clubs   *normalize.Registry
	fetcher Fetcher
	sources []sources.Source
	opts    Options
	sinks   []Sink
}

func NewService(clubs *normalize.Registry, f Fetcher, srcs []sources.Source, opts Options, sinks ...Sink) *Service {
	return &Service{clubs: clubs, fetcher: f, sources: srcs, opts: opts, sinks: sinks}
}

// Clubs lists the canonical clubs a request may select.
func (s *Service) Clubs() []models.CanonicalEntity {
	return s.clubs.Entities()
}

// SourceNames lists the enabled sources in configured order.
func (s *Service) SourceNames() []string {
	out := make([]string, len(s.sources))
	for i, src := range s.sources {
		out[i] = src.Name()
	}
	return out
}

func (s *Service) Compare(ctx context.Context, req Request) (*Comparison, error) {
	started := time.Now()

	entities, unmatched := s.clubs.ResolveAll(req.Clubs)
	if len(unmatched) > 0 {
		slog.Warn("Unmatched club names", "names", unmatched)
	}
	if len(entities) == 0 {
		metrics.RecordComparison("error")
		return nil, fmt.Errorf("%w (unmatched: %s)", ErrNothingSelected, strings.Join(unmatched, ", "))
	}

	srcs, err := s.selectSources(req.Sources)
	if err != nil {
		metrics.RecordComparison("error")
		return nil, err
	}

	res, err := s.fetcher.Fetch(ctx, entities, srcs)
	if err != nil {
		metrics.RecordComparison("error")
		return nil, fmt.Errorf("fetch: %w", err)
	}

	strict := s.opts.StrictNights
	if req.StrictNights != nil {
		strict = *req.StrictNights
	}
	groups := Correlate(res.Offers, CorrelateOptions{
		ToleranceDays: s.opts.ToleranceDays,
		NoiseFloor:    s.opts.NoiseFloor,
		Primary:       s.opts.Primary,
	})
	matrix := Build(groups, s.opts.SourceOrder, BuildOptions{
		Primary:      s.opts.Primary,
		NoiseFloor:   s.opts.NoiseFloor,
		StrictNights: strict,
	})

	c := &Comparison{
		RunID:           res.RunID,
		StartedAt:       started,
		Duration:        time.Since(started),
		Matrix:          matrix,
		Overpriced:      Overpriced(matrix),
		Unmatched:       unmatched,
		Unresolved:      res.Unresolved,
		Contributing:    res.Contributing,
		Failed:          res.Failed,
		Units:           res.Units,
		ResolveFailures: res.ResolveFailures,
		Duplicates:      res.Duplicates,
	}

	status := "ok"
	if len(matrix.Rows) == 0 {
		status = "empty"
	}
	metrics.RecordComparison(status)
	slog.Info("Comparison finished",
		"run_id", c.RunID,
		"rows", len(matrix.Rows),
		"columns", len(matrix.Columns),
		"overpriced", len(c.Overpriced),
		"duration", c.Duration)

	s.publish(ctx, c)
	return c, nil
}

func (s *Service) selectSources(names []string) ([]sources.Source, error) {
	if len(names) == 0 {
		return s.sources, nil
	}
	byName := make(map[string]sources.Source, len(s.sources))
	for _, src := range s.sources {
		byName[strings.ToLower(src.Name())] = src
	}
	var out []sources.Source
	for _, n := range names {
		src, ok := byName[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("%w %q (enabled: %v)", ErrUnknownSource, n, s.SourceNames())
		}
		out = append(out, src)
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, c *Comparison) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, c); err != nil {
			slog.Error("Failed to publish comparison", "run_id", c.RunID, "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}
}
