package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Vodeneev/tripprices/internal/comparator"
	"github.com/Vodeneev/tripprices/internal/fetcher"
	"github.com/Vodeneev/tripprices/internal/pkg/browser"
	"github.com/Vodeneev/tripprices/internal/pkg/cache"
	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/pkg/notify"
	"github.com/Vodeneev/tripprices/internal/pkg/storage"
	"github.com/Vodeneev/tripprices/internal/sources"
	"github.com/Vodeneev/tripprices/internal/sources/web"

	// Register all supported sources via init().
	_ "github.com/Vodeneev/tripprices/internal/sources/all"
)

// app holds everything a command needs. close releases connections and flushes sinks.
type app struct {
	cfg       *config.Config
	clubs     *normalize.Registry
	providers *normalize.Registry
	service   *comparator.Service
	closers   []func()
}

// buildRegistries layers config aliases and the aliases file over the built-in lists.
func buildRegistries(cfg *config.Config) (clubs, providers *normalize.Registry, err error) {
	var fileClubs, fileProviders []normalize.Entry
	if cfg.AliasesFile != "" {
		fileClubs, fileProviders, err = normalize.LoadFile(cfg.AliasesFile)
		if err != nil {
			return nil, nil, err
		}
	}

	clubs, err = normalize.NewRegistry(normalize.Merge(normalize.DefaultClubs,
		normalize.EntriesFromMap(cfg.Aliases), fileClubs))
	if err != nil {
		return nil, nil, fmt.Errorf("clubs: %w", err)
	}

	providers, err = normalize.NewRegistry(normalize.Merge(normalize.DefaultProviders,
		providerEntries(cfg.Providers), fileProviders))
	if err != nil {
		return nil, nil, fmt.Errorf("providers: %w", err)
	}
	return clubs, providers, nil
}

// providerEntries reads the "id: [spellings]" providers block. The first spelling is
// the display name of a provider that is not built in.
func providerEntries(m map[string][]string) []normalize.Entry {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]normalize.Entry, 0, len(ids))
	for _, id := range ids {
		spellings := m[id]
		e := normalize.Entry{ID: strings.ToLower(strings.TrimSpace(id)), Name: id}
		if len(spellings) > 0 {
			e.Name, e.Aliases = spellings[0], spellings[1:]
		}
		out = append(out, e)
	}
	return out
}

func newCache(cfg config.CacheConfig) (cache.Cache, func(), error) {
	switch cfg.Backend {
	case "redis":
		r, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	default:
		return cache.NewMemory(), func() {}, nil
	}
}

// newApp wires sources, fetcher, sinks and the comparison service from the config.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var err error
	a.clubs, a.providers, err = buildRegistries(cfg)
	if err != nil {
		return nil, err
	}

	c, closeCache, err := newCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	deps := sources.Deps{
		Clubs: a.clubs,
		Pages: web.NewClient(cfg.Sources.Timeout, cfg.Sources.UserAgent, c),
		Browser: browser.NewChrome(browser.Options{
			Headless:  !cfg.Browser.Headful,
			ExecPath:  cfg.Browser.ExecPath,
			Debug:     cfg.Browser.Debug,
			UserAgent: cfg.Sources.UserAgent,
		}),
	}
	srcs, err := sources.Build(cfg.Sources.Enabled, cfg, deps)
	if err != nil {
		a.close()
		return nil, err
	}

	f := fetcher.New(fetcher.Options{
		Settings:  cfg.Sources.Settings,
		Providers: a.providers,
	})

	sinks, err := a.buildSinks()
	if err != nil {
		a.close()
		return nil, err
	}

	a.service = comparator.NewService(a.clubs, f, srcs, comparator.OptionsFromConfig(cfg.Comparator), sinks...)
	slog.Info("Comparison service ready", "sources", a.service.SourceNames(), "clubs", a.clubs.Len(), "sinks", len(sinks))
	return a, nil
}

func (a *app) buildSinks() ([]comparator.Sink, error) {
	var sinks []comparator.Sink
	if a.cfg.Postgres.DSN != "" {
		pg, err := storage.NewPostgresComparisonStorage(&a.cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = pg.Close() })
		sinks = append(sinks, pg)
	}
	if a.cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID)
		if err != nil {
			// notifications are optional
			slog.Warn("Telegram notifier disabled", "error", err)
		} else {
			a.closers = append(a.closers, tg.Stop)
			sinks = append(sinks, tg)
		}
	}
	return sinks, nil
}

// close runs closers in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
