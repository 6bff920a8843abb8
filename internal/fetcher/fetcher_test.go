package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/sources"
)

var (
	tottenham = models.CanonicalEntity{ID: "tottenham", Name: "Tottenham"}
	arsenal   = models.CanonicalEntity{ID: "arsenal", Name: "Arsenal"}
)

// fakeSource resolves every club to n targets and delegates FetchOffers to fetch.
type fakeSource struct {
	name    string
	limits  sources.Limits
	targets int
	resolve func(ctx context.Context, e models.CanonicalEntity) ([]sources.Target, error)
	fetch   func(ctx context.Context, t sources.Target) ([]models.RawOffer, error)
}

func (s *fakeSource) Name() string           { return s.name }
func (s *fakeSource) Limits() sources.Limits { return s.limits }

func (s *fakeSource) ResolveTargets(ctx context.Context, e models.CanonicalEntity) ([]sources.Target, error) {
	if s.resolve != nil {
		return s.resolve(ctx, e)
	}
	n := s.targets
	if n == 0 {
		n = 1
	}
	out := make([]sources.Target, n)
	for i := range out {
		out[i] = sources.Target{Entity: e, Key: fmt.Sprintf("%s/%s/%d", s.name, e.ID, i)}
	}
	return out, nil
}

func (s *fakeSource) FetchOffers(ctx context.Context, t sources.Target) ([]models.RawOffer, error) {
	return s.fetch(ctx, t)
}

func offerFor(t sources.Target, price float64) models.RawOffer {
	return models.RawOffer{
		MatchLabel: t.Entity.Name + " vs Chelsea",
		EventDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Price:      price,
		Nights:     2,
		Link:       t.Key,
	}
}

func healthySource(name string, price float64) *fakeSource {
	return &fakeSource{
		name:   name,
		limits: sources.Limits{Workers: 2, UnitTimeout: time.Second},
		fetch: func(_ context.Context, t sources.Target) ([]models.RawOffer, error) {
			return []models.RawOffer{offerFor(t, price)}, nil
		},
	}
}

func newTestFetcher() *Fetcher {
	return New(Options{RetryBackoff: time.Millisecond})
}

func TestFetch_ConfigErrors(t *testing.T) {
	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), []models.CanonicalEntity{tottenham}, nil)
	assert.ErrorIs(t, err, ErrNoSources)
	_, err = f.Fetch(context.Background(), nil, []sources.Source{healthySource("a", 100)})
	assert.ErrorIs(t, err, ErrNoEntities)
}

func TestFetch_StampsOriginAndEntity(t *testing.T) {
	res, err := newTestFetcher().Fetch(context.Background(),
		[]models.CanonicalEntity{tottenham, arsenal},
		[]sources.Source{healthySource("alpha", 1200)})
	require.NoError(t, err)

	require.Len(t, res.Offers, 2)
	for _, o := range res.Offers {
		assert.Equal(t, "alpha", o.Origin)
		assert.Equal(t, "alpha", o.Source)
		assert.NotEmpty(t, o.Entity.ID)
	}
	assert.Equal(t, []string{"alpha"}, res.Contributing)
	assert.Empty(t, res.Failed)
	assert.NotEmpty(t, res.RunID)
	for _, u := range res.Units {
		assert.Equal(t, StatusOK, u.Status)
		assert.Equal(t, 1, u.Attempts)
	}
}

// A source that fails every call must not change what the healthy source delivers.
func TestFetch_FaultIsolation(t *testing.T) {
	entities := []models.CanonicalEntity{tottenham, arsenal}

	alone, err := newTestFetcher().Fetch(context.Background(), entities,
		[]sources.Source{healthySource("alpha", 1200)})
	require.NoError(t, err)

	broken := []sources.Source{
		healthySource("alpha", 1200),
		&fakeSource{name: "erroring", fetch: func(context.Context, sources.Target) ([]models.RawOffer, error) {
			return nil, errors.New("malformed page")
		}},
		&fakeSource{name: "panicking", fetch: func(context.Context, sources.Target) ([]models.RawOffer, error) {
			panic("nil map")
		}},
		&fakeSource{name: "unresolvable",
			resolve: func(context.Context, models.CanonicalEntity) ([]sources.Target, error) {
				return nil, errors.New("directory page down")
			},
			fetch: func(context.Context, sources.Target) ([]models.RawOffer, error) { return nil, nil },
		},
	}
	res, err := newTestFetcher().Fetch(context.Background(), entities, broken)
	require.NoError(t, err)

	assert.ElementsMatch(t, alone.Offers, res.Offers)
	assert.Equal(t, []string{"alpha"}, res.Contributing)
	assert.Equal(t, []string{"erroring", "panicking", "unresolvable"}, res.Failed)
	assert.Len(t, res.ResolveFailures, 2)
	assert.Empty(t, res.Unresolved, "alpha resolved both clubs")

	statuses := map[string]Status{}
	for _, u := range res.Units {
		statuses[u.Source] = u.Status
	}
	assert.Equal(t, StatusSoftFailure, statuses["erroring"])
	assert.Equal(t, StatusHardFailure, statuses["panicking"])
}

func TestFetch_AllSourcesFail(t *testing.T) {
	src := &fakeSource{name: "down", fetch: func(context.Context, sources.Target) ([]models.RawOffer, error) {
		return nil, sources.Permanent(errors.New("gone"))
	}}
	res, err := newTestFetcher().Fetch(context.Background(), []models.CanonicalEntity{tottenham}, []sources.Source{src})
	require.NoError(t, err, "systemic failure is an empty result, not an error")
	assert.Empty(t, res.Offers)
	assert.Equal(t, []string{"down"}, res.Failed)
}

func TestFetch_Retry(t *testing.T) {
	tests := []struct {
		name         string
		errs         []error
		wantStatus   Status
		wantAttempts int
	}{
		{"transient then ok", []error{sources.Transient(errors.New("reset")), nil}, StatusOK, 2},
		{"transient twice", []error{sources.Transient(errors.New("reset")), sources.Transient(errors.New("reset"))}, StatusSoftFailure, 2},
		{"permanent", []error{sources.Permanent(errors.New("404")), nil}, StatusSoftFailure, 1},
		{"unclassified", []error{errors.New("parse error"), nil}, StatusSoftFailure, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			src := &fakeSource{name: "flaky", fetch: func(_ context.Context, tg sources.Target) ([]models.RawOffer, error) {
				n := atomic.AddInt32(&calls, 1)
				if err := tt.errs[n-1]; err != nil {
					return nil, err
				}
				return []models.RawOffer{offerFor(tg, 999)}, nil
			}}
			res, err := newTestFetcher().Fetch(context.Background(), []models.CanonicalEntity{tottenham}, []sources.Source{src})
			require.NoError(t, err)
			require.Len(t, res.Units, 1)
			assert.Equal(t, tt.wantStatus, res.Units[0].Status)
			assert.Equal(t, tt.wantAttempts, res.Units[0].Attempts)
			assert.Equal(t, int32(tt.wantAttempts), atomic.LoadInt32(&calls))
			if tt.wantStatus == StatusOK {
				assert.Len(t, res.Offers, 1)
			} else {
				assert.Empty(t, res.Offers)
			}
		})
	}
}

// An adapter that ignores its context is abandoned at the unit timeout, retried once
// (a timeout is transient) and then recorded as a soft failure.
func TestFetch_HangingUnitIsAbandoned(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	hanging := &fakeSource{
		name:   "hanging",
		limits: sources.Limits{Workers: 1, UnitTimeout: 50 * time.Millisecond},
		fetch: func(context.Context, sources.Target) ([]models.RawOffer, error) {
			<-release
			return nil, nil
		},
	}

	start := time.Now()
	res, err := newTestFetcher().Fetch(context.Background(),
		[]models.CanonicalEntity{tottenham},
		[]sources.Source{hanging, healthySource("alpha", 1000)})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var hung UnitResult
	for _, u := range res.Units {
		if u.Source == "hanging" {
			hung = u
		}
	}
	assert.Equal(t, StatusSoftFailure, hung.Status)
	assert.Equal(t, 2, hung.Attempts)
	assert.Contains(t, hung.Error, "timed out")
	assert.Len(t, res.Offers, 1)
}

func TestFetch_HangingResolveIsAbandoned(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	src := &fakeSource{
		name:   "slowdir",
		limits: sources.Limits{ResolveTimeout: 30 * time.Millisecond},
		resolve: func(context.Context, models.CanonicalEntity) ([]sources.Target, error) {
			<-release
			return nil, nil
		},
		fetch: func(context.Context, sources.Target) ([]models.RawOffer, error) { return nil, nil },
	}
	res, err := newTestFetcher().Fetch(context.Background(), []models.CanonicalEntity{tottenham}, []sources.Source{src})
	require.NoError(t, err)
	require.Len(t, res.ResolveFailures, 1)
	assert.Equal(t, []models.CanonicalEntity{tottenham}, res.Unresolved)
}

func TestFetch_WorkerBound(t *testing.T) {
	var cur, peak int32
	src := &fakeSource{
		name:    "bounded",
		targets: 12,
		limits:  sources.Limits{Workers: 3, UnitTimeout: time.Second},
		fetch: func(_ context.Context, tg sources.Target) ([]models.RawOffer, error) {
			n := atomic.AddInt32(&cur, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&cur, -1)
			return []models.RawOffer{offerFor(tg, 100)}, nil
		},
	}
	res, err := newTestFetcher().Fetch(context.Background(), []models.CanonicalEntity{tottenham}, []sources.Source{src})
	require.NoError(t, err)
	assert.Len(t, res.Units, 12)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestFetch_ConfigOverridesWorkers(t *testing.T) {
	var cur, peak int32
	var mu sync.Mutex
	src := &fakeSource{
		name:    "override",
		targets: 6,
		limits:  sources.Limits{Workers: 6, UnitTimeout: time.Second},
		fetch: func(context.Context, sources.Target) ([]models.RawOffer, error) {
			n := atomic.AddInt32(&cur, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&cur, -1)
			return nil, nil
		},
	}
	f := New(Options{Settings: map[string]config.SourceConfig{"override": {Workers: 1}}})
	_, err := f.Fetch(context.Background(), []models.CanonicalEntity{tottenham}, []sources.Source{src})
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak)
}

func TestFetch_DedupAndProviderCanonicalization(t *testing.T) {
	providers, err := normalize.NewRegistry([]normalize.Entry{
		{ID: "fantravel", Name: "Fantravel.dk", Aliases: []string{"Fan Travel"}},
	})
	require.NoError(t, err)

	aggregator := &fakeSource{name: "aggregator", fetch: func(_ context.Context, tg sources.Target) ([]models.RawOffer, error) {
		a := offerFor(tg, 1500)
		a.Source = "Fantravel.dk"
		b := a
		b.Source = "Fan Travel" // same provider, other spelling
		c := a
		c.Source = "Unknown Tours"
		return []models.RawOffer{a, b, c}, nil
	}}

	f := New(Options{Providers: providers, RetryBackoff: time.Millisecond})
	res, err := f.Fetch(context.Background(), []models.CanonicalEntity{tottenham}, []sources.Source{aggregator})
	require.NoError(t, err)

	require.Len(t, res.Offers, 2)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, "fantravel", res.Offers[0].Source)
	assert.Equal(t, "Unknown Tours", res.Offers[1].Source)
	for _, o := range res.Offers {
		assert.Equal(t, "aggregator", o.Origin)
	}
}

func TestFetch_CancelledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{name: "slow", limits: sources.Limits{UnitTimeout: time.Minute},
		fetch: func(ctx context.Context, _ sources.Target) ([]models.RawOffer, error) {
			cancel()
			<-ctx.Done()
			return nil, sources.Transient(ctx.Err())
		}}
	res, err := newTestFetcher().Fetch(ctx, []models.CanonicalEntity{tottenham}, []sources.Source{src})
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, 1, res.Units[0].Attempts, "no retry once the run is cancelled")
	assert.Equal(t, StatusSoftFailure, res.Units[0].Status)
}

func TestFetch_SanitizesAndDropsInvalidOffers(t *testing.T) {
	src := &fakeSource{name: "messy", fetch: func(_ context.Context, tg sources.Target) ([]models.RawOffer, error) {
		good := offerFor(tg, 1300)
		good.MatchLabel = "  Tottenham\n   vs Chelsea "
		good.Link = "https://example.test/spurs"
		bad := offerFor(tg, math.NaN())
		return []models.RawOffer{good, bad}, nil
	}}
	res, err := newTestFetcher().Fetch(context.Background(), []models.CanonicalEntity{tottenham}, []sources.Source{src})
	require.NoError(t, err)

	require.Len(t, res.Offers, 1)
	assert.Equal(t, "Tottenham vs Chelsea", res.Offers[0].MatchLabel)
	assert.Equal(t, "https://example.test/spurs", res.Offers[0].Link)
	assert.Equal(t, 1, res.Units[0].Offers)
}
