// Package fetcher runs every enabled source for the selected clubs, one bounded worker
// pool per source, and merges whatever succeeded into one offer set.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/metrics"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/pkg/validation"
	"github.com/Vodeneev/tripprices/internal/sources"
)

var (
	ErrNoSources  = errors.New("fetcher: no sources enabled")
	ErrNoEntities = errors.New("fetcher: no clubs selected")
)

const maxAttempts = 2

type Status string

const (
	StatusOK          Status = "ok"
	StatusSoftFailure Status = "soft_failure" // the adapter returned an error
	StatusHardFailure Status = "hard_failure" // the adapter panicked
)

// UnitResult is the outcome of one (source, target) unit of work.
type UnitResult struct {
	Source   string        `json:"source"`
	Entity   string        `json:"entity"`
	Target   string        `json:"target"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Attempts int           `json:"attempts"`
	Offers   int           `json:"offers"`
	Duration time.Duration `json:"duration"`
}

type ResolveFailure struct {
	Source string `json:"source"`
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

// Result is the merged output of one run. Offers are in no particular order.
type Result struct {
	RunID           string                   `json:"run_id"`
	Offers          []models.RawOffer        `json:"offers"`
	Units           []UnitResult             `json:"units"`
	ResolveFailures []ResolveFailure         `json:"resolve_failures,omitempty"`
	Unresolved      []models.CanonicalEntity `json:"unresolved,omitempty"` // no target from any source
	Contributing    []string                 `json:"contributing"`
	Failed          []string                 `json:"failed,omitempty"` // no offers and at least one failure
	Duplicates      int                      `json:"duplicates"`
}

type Options struct {
	// Settings override the limits sources declare, keyed by lower-case source name.
	Settings map[string]config.SourceConfig
	// Providers maps provider spellings to column ids. Nil keeps the raw names.
	Providers *normalize.Registry
	// RetryBackoff is the pause before the single retry of a transient failure.
	RetryBackoff time.Duration
}

type Fetcher struct {
	settings  map[string]config.SourceConfig
	providers *normalize.Registry
	backoff   time.Duration
}

func New(opts Options) *Fetcher {
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	return &Fetcher{
		settings:  opts.Settings,
		providers: opts.Providers,
		backoff:   opts.RetryBackoff,
	}
}

// PanicError is recorded when an adapter panics inside a unit.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("adapter panic: %v", e.Value) }

type sourceOutcome struct {
	offers          []models.RawOffer
	units           []UnitResult
	resolveFailures []ResolveFailure
	resolved        map[string]bool // entity id -> got at least one target
}

// Fetch returns after every unit has completed, failed or been abandoned. Only
// configuration errors are returned; source failures are reported in the Result.
func (f *Fetcher) Fetch(ctx context.Context, entities []models.CanonicalEntity, srcs []sources.Source) (*Result, error) {
	if len(srcs) == 0 {
		return nil, ErrNoSources
	}
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}

	runID := uuid.NewString()
	logger := slog.With("run_id", runID)
	logger.Info("Starting fetch", "sources", len(srcs), "clubs", len(entities))
	start := time.Now()

	outcomes := make([]sourceOutcome, len(srcs))
	var g errgroup.Group
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			outcomes[i] = f.runSource(ctx, src, entities, logger.With("source", src.Name()))
			return nil
		})
	}
	_ = g.Wait()

	res := f.merge(runID, entities, srcs, outcomes)
	logger.Info("Fetch finished",
		"offers", len(res.Offers),
		"duplicates", res.Duplicates,
		"contributing", res.Contributing,
		"failed", res.Failed,
		"duration", time.Since(start))
	return res, nil
}

func (f *Fetcher) limitsFor(src sources.Source) sources.Limits {
	return src.Limits().WithConfig(f.settings[strings.ToLower(src.Name())])
}

type unitOutcome struct {
	idx    int
	offers []models.RawOffer
	result UnitResult
}

func (f *Fetcher) runSource(ctx context.Context, src sources.Source, entities []models.CanonicalEntity, logger *slog.Logger) sourceOutcome {
	name := src.Name()
	limits := f.limitsFor(src)
	out := sourceOutcome{resolved: make(map[string]bool, len(entities))}

	targets := f.resolveAll(ctx, src, entities, limits, logger, &out)
	if len(targets) == 0 {
		logger.Info("No targets for source")
		return out
	}

	var limiter *rate.Limiter
	if limits.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(limits.RatePerSecond), 1)
	}

	workers := limits.Workers
	if workers > len(targets) {
		workers = len(targets)
	}
	logger.Debug("Dispatching units", "targets", len(targets), "workers", workers)

	jobs := make(chan int)
	results := make(chan unitOutcome, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				offers, ur := f.runUnit(ctx, src, targets[idx], limits, limiter, logger)
				results <- unitOutcome{idx: idx, offers: offers, result: ur}
			}
		}()
	}
	go func() {
		for idx := range targets {
			jobs <- idx
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// single collector; slots keep the merge order independent of completion order
	perUnit := make([][]models.RawOffer, len(targets))
	out.units = make([]UnitResult, len(targets))
	for r := range results {
		perUnit[r.idx] = r.offers
		out.units[r.idx] = r.result
		metrics.RecordUnit(name, string(r.result.Status), r.result.Offers, r.result.Duration.Seconds())
	}
	for _, offers := range perUnit {
		out.offers = append(out.offers, offers...)
	}
	return out
}

func (f *Fetcher) resolveAll(ctx context.Context, src sources.Source, entities []models.CanonicalEntity, limits sources.Limits, logger *slog.Logger, out *sourceOutcome) []sources.Target {
	var targets []sources.Target
	seen := make(map[string]struct{})
	for _, e := range entities {
		if ctx.Err() != nil {
			break
		}
		ts, err := f.resolve(ctx, src, e, limits.ResolveTimeout)
		if err != nil {
			logger.Warn("Target resolution failed", "club", e.ID, "error", err)
			metrics.RecordResolveFailure(src.Name())
			out.resolveFailures = append(out.resolveFailures, ResolveFailure{
				Source: src.Name(), Entity: e.ID, Error: err.Error(),
			})
			continue
		}
		for _, t := range ts {
			if t.Entity.ID == "" {
				t.Entity = e
			}
			k := t.Entity.ID + "|" + t.Key
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			targets = append(targets, t)
			out.resolved[e.ID] = true
		}
	}
	return targets
}

type resolveReply struct {
	targets []sources.Target
	err     error
}

// resolve runs ResolveTargets under its own deadline; an adapter that ignores the
// context is abandoned.
func (f *Fetcher) resolve(ctx context.Context, src sources.Source, e models.CanonicalEntity, timeout time.Duration) ([]sources.Target, error) {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan resolveReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- resolveReply{err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		ts, err := src.ResolveTargets(rctx, e)
		done <- resolveReply{targets: ts, err: err}
	}()

	select {
	case r := <-done:
		return r.targets, r.err
	case <-rctx.Done():
		return nil, fmt.Errorf("resolve %s: %w", e.ID, rctx.Err())
	}
}

func (f *Fetcher) runUnit(ctx context.Context, src sources.Source, t sources.Target, limits sources.Limits, limiter *rate.Limiter, logger *slog.Logger) ([]models.RawOffer, UnitResult) {
	start := time.Now()
	ur := UnitResult{Source: src.Name(), Entity: t.Entity.ID, Target: t.Key}

	var (
		offers []models.RawOffer
		err    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ur.Attempts = attempt
		offers, err = f.attempt(ctx, src, t, limits, limiter)
		if err == nil || attempt == maxAttempts || !sources.IsTransient(err) || ctx.Err() != nil {
			break
		}
		logger.Debug("Retrying unit", "target", t.Key, "error", err)
		if !sleepCtx(ctx, f.backoff) {
			break
		}
	}
	ur.Duration = time.Since(start)

	var pe *PanicError
	switch {
	case err == nil:
		ur.Status = StatusOK
		offers = f.finish(src.Name(), t, offers, logger)
		ur.Offers = len(offers)
		return offers, ur
	case errors.As(err, &pe):
		ur.Status = StatusHardFailure
		logger.Error("Adapter panicked", "target", t.Key, "panic", pe.Value, "stack", string(pe.Stack))
	default:
		ur.Status = StatusSoftFailure
		logger.Warn("Unit failed", "target", t.Key, "attempts", ur.Attempts, "error", err)
	}
	ur.Error = err.Error()
	return nil, ur
}

type fetchReply struct {
	offers []models.RawOffer
	err    error
}

func (f *Fetcher) attempt(ctx context.Context, src sources.Source, t sources.Target, limits sources.Limits, limiter *rate.Limiter) ([]models.RawOffer, error) {
	unitCtx, cancel := context.WithTimeout(ctx, limits.UnitTimeout)
	defer cancel()

	if limiter != nil {
		if err := limiter.Wait(unitCtx); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("run cancelled: %w", ctx.Err())
			}
			return nil, sources.Transient(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	done := make(chan fetchReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchReply{err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		offers, err := src.FetchOffers(unitCtx, t)
		done <- fetchReply{offers: offers, err: err}
	}()

	select {
	case r := <-done:
		return r.offers, r.err
	case <-unitCtx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("run cancelled: %w", ctx.Err())
		}
		return nil, sources.Transient(fmt.Errorf("unit timed out after %s: %w", limits.UnitTimeout, context.DeadlineExceeded))
	}
}

// finish stamps origin and entity, cleans scraped text and maps provider spellings to
// column ids. Offers that cannot be placed in any row are dropped.
func (f *Fetcher) finish(origin string, t sources.Target, offers []models.RawOffer, logger *slog.Logger) []models.RawOffer {
	out := make([]models.RawOffer, 0, len(offers))
	for _, o := range offers {
		o.Origin = origin
		if o.Entity.ID == "" {
			o.Entity = t.Entity
		}
		validation.SanitizeOffer(&o)
		o.Source = f.canonicalSource(o.Source, origin)
		if err := validation.ValidateOffer(o); err != nil {
			logger.Debug("Dropping invalid offer", "target", t.Key, "label", o.MatchLabel, "error", err)
			continue
		}
		out = append(out, o)
	}
	return out
}

func (f *Fetcher) canonicalSource(raw, origin string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return origin
	}
	if f.providers != nil {
		if p, ok := f.providers.Lookup(raw); ok {
			return p.ID
		}
	}
	return raw
}

func (f *Fetcher) merge(runID string, entities []models.CanonicalEntity, srcs []sources.Source, outcomes []sourceOutcome) *Result {
	res := &Result{RunID: runID}
	seen := make(map[string]struct{})
	resolved := make(map[string]bool)

	for i, out := range outcomes {
		name := srcs[i].Name()
		res.Units = append(res.Units, out.units...)
		res.ResolveFailures = append(res.ResolveFailures, out.resolveFailures...)
		for id := range out.resolved {
			resolved[id] = true
		}

		for _, o := range out.offers {
			k := o.DedupKey()
			if _, dup := seen[k]; dup {
				res.Duplicates++
				continue
			}
			seen[k] = struct{}{}
			res.Offers = append(res.Offers, o)
		}

		failures := len(out.resolveFailures)
		for _, u := range out.units {
			if u.Status != StatusOK {
				failures++
			}
		}
		switch {
		case len(out.offers) > 0:
			res.Contributing = append(res.Contributing, name)
		case failures > 0:
			res.Failed = append(res.Failed, name)
		}
	}

	for _, e := range entities {
		if !resolved[e.ID] {
			res.Unresolved = append(res.Unresolved, e)
		}
	}
	sort.Strings(res.Contributing)
	sort.Strings(res.Failed)
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
