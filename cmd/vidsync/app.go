package main

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/vidsync/internal/api"
	"github.com/mmcdole/vidsync/internal/breadcrumb"
	"github.com/mmcdole/vidsync/internal/comments"
	"github.com/mmcdole/vidsync/internal/config"
	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/index"
	"github.com/mmcdole/vidsync/internal/library"
	"github.com/mmcdole/vidsync/internal/notes"
	"github.com/mmcdole/vidsync/internal/player"
	"github.com/mmcdole/vidsync/internal/query"
	"github.com/mmcdole/vidsync/internal/store"
	"github.com/mmcdole/vidsync/internal/users"
)

// app holds the wired services shared by every command
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *users.Registry

	store    *store.VideoStore
	cache    *query.Cache
	builder  *index.Builder
	library  *library.Commands
	queries  *library.Queries
	comments *comments.Service
	notes    *notes.Store
	crumbs   *breadcrumb.Resolver
	launcher *player.Launcher

	detach func()
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry := users.Default()

	client := api.NewClient(api.ClientConfig{
		BaseURL:    cfg.API.URL,
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		RateLimit:  cfg.API.RateLimit,
		Burst:      cfg.API.Burst,
	}, logger)

	noteStore, err := notes.Open(cfg.Notes.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open notes: %w", err)
	}

	st := store.New(logger)
	cache := query.New(domain.SystemClock{}, cfg.Cache.StaleWindow, logger)
	builder := index.NewBuilder(registry.All(), logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		store:    st,
		cache:    cache,
		builder:  builder,
		library:  library.NewCommands(api.NewVideoGateway(client, logger), st, cache, registry, domain.SystemClock{}, logger),
		queries:  library.NewQueries(st),
		comments: comments.NewService(api.NewCommentGateway(client, logger), st, cache, logger),
		notes:    noteStore,
		crumbs:   breadcrumb.NewResolver(st, registry, cache),
		launcher: player.NewLauncher(cfg.Player.Command, cfg.Player.Args, logger),
		detach:   builder.Attach(st),
	}, nil
}

// actingUser resolves the configured username against the registry.
// Without a known user the first registry entry acts.
func (a *app) actingUser() domain.User {
	if u, ok := a.registry.ByUsername(a.cfg.User.Username); ok {
		return u
	}
	if u, ok := a.registry.ByID(a.cfg.User.Username); ok {
		return u
	}
	u, _ := a.registry.First()
	return u
}

func (a *app) close() {
	a.detach()
	a.cache.Wait()
	if err := a.notes.Close(); err != nil {
		a.logger.Error("failed to close notes", "error", err)
	}
	a.logger.Info("shutting down")
}
