package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/SUMERGeg/lostfound/core/bootstrap"
	"github.com/SUMERGeg/lostfound/core/logger"
	tg "github.com/SUMERGeg/lostfound/core/telegram"
	"github.com/SUMERGeg/lostfound/core/telegram/router"
	"github.com/SUMERGeg/lostfound/flow"
	"github.com/SUMERGeg/lostfound/flow/state"
	"github.com/SUMERGeg/lostfound/users"
)

// App holds the assembled bot: engine, registry, and owned resources.
type App struct {
	cfg      *Config
	engine   *flow.Engine
	registry *tg.Registry

	db      *sqlx.DB
	rdb     *redis.Client
	sweeper state.Sweeper
}

// Bootstrap initializes infrastructure and assembles the dialogue engine.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, db: res.DB}

	store, err := app.buildStore()
	if err != nil {
		app.closeResources()
		return nil, err
	}

	var resolver flow.UserResolver
	if app.db != nil {
		resolver = users.NewService(app.db)
	} else {
		resolver = users.NewMemoryResolver()
	}

	render := flow.NewRenderer()
	steps := flow.BuildRegistry(render)
	engine, err := flow.NewEngine(flow.Options{
		Store:    store,
		Users:    resolver,
		Registry: steps,
		Renderer: render,
	})
	if err != nil {
		app.closeResources()
		return nil, err
	}
	app.engine = engine

	logger.FSM.Info("dialogue engine ready",
		slog.String("event", "fsm.ready"),
		slog.String("store", cfg.Dialog.Store),
		slog.Int("steps", len(steps.Steps())),
	)

	app.registry = tg.NewRegistry()
	registerCommands(app.registry, engine)

	return app, nil
}

// buildStore selects the state backend from configuration.
func (a *App) buildStore() (flow.Store, error) {
	switch a.cfg.Dialog.Store {
	case StorePostgres:
		if a.db == nil {
			return nil, fmt.Errorf("bot: postgres store requires a database connection")
		}
		st := state.NewPostgres(a.db)
		a.sweeper = st
		return st, nil
	case StoreRedis:
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := a.rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("bot: redis ping failed: %w", err)
		}
		// Redis expires keys natively, no sweeper needed.
		return state.NewRedis(a.rdb, a.cfg.Dialog.TTL()), nil
	default:
		st := state.NewMemory()
		a.sweeper = st
		return st, nil
	}
}

// Engine exposes the dialogue engine, mainly for tests.
func (a *App) Engine() *flow.Engine {
	return a.engine
}

// TelegramRunOptions builds the telebot run configuration: middleware
// chain, command routes, and the dialogue routes.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	dialog := newDialogBinding(a.engine)

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.MessageRoutes(dialog, a.registry, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(dialog))

	opts := tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			if a.sweeper != nil {
				go state.RunSweeper(ctx, a.sweeper, a.cfg.Dialog.SweepInterval(), a.cfg.Dialog.TTL())
			}
			return nil
		},
		OnStop: func(_ context.Context, _ tg.Runtime) error {
			a.closeResources()
			return nil
		},
	}
	return opts, nil
}

func (a *App) closeResources() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
}

var _ router.Dialog = (*dialogBinding)(nil)
