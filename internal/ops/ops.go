// Package ops implements the operations shared by the CLI, the MCP server and
// the web API.
package ops

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/hpungsan/mnemo/internal/chunk"
	"github.com/hpungsan/mnemo/internal/config"
	"github.com/hpungsan/mnemo/internal/db"
	"github.com/hpungsan/mnemo/internal/keywords"
	"github.com/hpungsan/mnemo/internal/logging"
	"github.com/hpungsan/mnemo/internal/pin"
	"github.com/hpungsan/mnemo/internal/resolver"
	"github.com/hpungsan/mnemo/internal/session"
	"github.com/hpungsan/mnemo/internal/theme"
)

// App wires the codec, the store and the session registry together.
type App struct {
	Config   *config.Config
	Store    *db.KeywordStore
	Resolver *resolver.Resolver
	Filler   *pin.Filler
	Sessions *session.Manager
	Paths    PathPolicy
	Logger   *slog.Logger

	chunker chunk.Chunker
}

// Options carries optional collaborators for New.
type Options struct {
	// BaseDir is the data directory (~/.mnemo). Its exports subdirectory is
	// always an allowed import/export location.
	BaseDir string
	Logger  *slog.Logger
	// Gemini supplies theme words when the store has none. Nil disables it.
	Gemini theme.Generator
}

// New builds an App over an initialized database.
func New(database *sql.DB, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := logging.OrDiscard(opts.Logger)

	policy, err := chunk.ParsePolicy(cfg.ChunkPolicy)
	if err != nil {
		return nil, err
	}
	table, err := keywords.Default()
	if err != nil {
		return nil, err
	}

	store := db.NewKeywordStore(database)
	resolverOpts := []resolver.Option{resolver.WithLogger(logger)}
	if cfg.TaughtFirst {
		resolverOpts = append(resolverOpts, resolver.WithPreferred(resolver.ServiceTier{
			Service:   taughtService(store),
			UserID:    cfg.UserID,
			Timeout:   cfg.ResolverTimeout(),
			ExactOnly: true,
			Logger:    logger,
		}))
	}
	res := resolver.New([]resolver.Tier{
		resolver.StaticTier{Table: table},
		resolver.ServiceTier{
			Service: keywordService(store, table),
			UserID:  cfg.UserID,
			Timeout: cfg.ResolverTimeout(),
			Filler:  cfg.FillerDigit,
			Logger:  logger,
		},
	}, resolverOpts...)

	pools := []theme.Pool{theme.StorePool{Store: store}}
	if opts.Gemini != nil {
		pools = append(pools, theme.NewGeminiPool(opts.Gemini, cfg.ThemeRPM))
	}
	filler := &pin.Filler{
		Pool:    theme.NewChain(logger, pools...),
		Pattern: cfg.PadPattern,
		Timeout: cfg.ThemeTimeout(),
		Logger:  logger,
	}

	app := &App{
		Config:   cfg,
		Store:    store,
		Resolver: res,
		Filler:   filler,
		Paths:    NewPathPolicy(opts.BaseDir, cfg),
		Logger:   logger,
		chunker:  chunk.New(policy),
	}
	app.Sessions = session.NewManager(app.newSession)
	return app, nil
}

// NewGemini returns a Gemini generator when an API key is configured, nil otherwise.
func NewGemini(ctx context.Context, cfg *config.Config, logger *slog.Logger) theme.Generator {
	key := cfg.GeminiKey()
	if key == "" {
		return nil
	}
	gen, err := theme.NewGenaiGenerator(ctx, key, cfg.GeminiModel)
	if err != nil {
		logging.OrDiscard(logger).Warn("gemini theme pool disabled", "error", err)
		return nil
	}
	return gen
}

// keywordService answers from the store, backing 2-digit probes with the
// embedded table so padded single digits resolve offline.
func keywordService(store *db.KeywordStore, table *keywords.Table) resolver.Service {
	return resolver.ServiceFunc(func(ctx context.Context, kind, code, userID string) ([]string, error) {
		words, err := store.Lookup(ctx, kind, code, userID)
		if err != nil {
			return nil, err
		}
		if kind == db.Kind2Digit {
			static, _ := table.Lookup(code)
			words = append(words, static...)
		}
		return words, nil
	})
}

// taughtService returns only the user's taught words for the exact chunk.
func taughtService(store *db.KeywordStore) resolver.Service {
	return resolver.ServiceFunc(func(ctx context.Context, _, code, userID string) ([]string, error) {
		return store.CustomWords(ctx, userID, code)
	})
}

func (a *App) newSession(id string) *session.Session {
	return session.New(id, a.Resolver,
		session.WithChunker(a.chunker),
		session.WithCustomWords(session.TeachFunc(a.teach)),
		session.WithLogger(a.Logger),
	)
}

// teach persists an override for the configured user.
func (a *App) teach(ctx context.Context, code, word string) error {
	_, err := a.Store.Teach(ctx, a.Config.UserID, code, word)
	return err
}
