// Package app construye el grafo de dependencias del proceso: config →
// store → limiter → services → router. Todo se inyecta explícitamente;
// no hay singletons de dominio.
package app

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/sentinela/internal/catalog"
	"github.com/dropDatabas3/sentinela/internal/config"
	ihttp "github.com/dropDatabas3/sentinela/internal/http"
	sessionctl "github.com/dropDatabas3/sentinela/internal/http/controllers/session"
	"github.com/dropDatabas3/sentinela/internal/lockout"
	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"github.com/dropDatabas3/sentinela/internal/permsync"
	"github.com/dropDatabas3/sentinela/internal/rate"
	"github.com/dropDatabas3/sentinela/internal/store/core"
	"github.com/dropDatabas3/sentinela/internal/store/memory"
	"github.com/dropDatabas3/sentinela/internal/store/pg"
	"github.com/dropDatabas3/sentinela/internal/token"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
)

type App struct {
	Cfg     *config.Config
	Store   core.Store
	Limiter *rate.Scoped
	Lockout *lockout.Policy
	Tokens  *token.Service
	Engine  *permsync.Engine
}

// New arma la aplicación. migrate=true corre el bootstrap de schema en
// Postgres antes de servir.
func New(ctx context.Context, cfg *config.Config, migrate bool) (*App, error) {
	var (
		st     core.Store
		locker permsync.Locker
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pgStore, err := pg.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("app: postgres: %w", err)
		}
		if migrate {
			if err := pgStore.EnsureSchema(ctx); err != nil {
				pgStore.Close()
				return nil, fmt.Errorf("app: schema: %w", err)
			}
		}
		st = pgStore
		locker = pg.NewAdvisoryLocker(pgStore.Pool())
	case "memory", "":
		st = memory.New()
		locker = &permsync.MutexLocker{}
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
	}

	// Limiter: memoria siempre; con Redis configurado, Redis asegurado
	// por el de memoria (fail-open ante caída del store distribuido).
	var backend rate.Limiter = rate.NewMemoryLimiter()
	if cfg.Redis.Addr != "" {
		client := rdb.NewClient(&rdb.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		redisLim := rate.NewRedisLimiter(client, cfg.Redis.Prefix)
		backend = rate.NewInsuredLimiter(redisLim, backend)
		logger.Named("app").Info("rate limiter backed by redis",
			logger.String("addr", cfg.Redis.Addr))
	}
	budgets := map[rate.Scope]rate.Budget{
		rate.ScopeIP:        toBudget(cfg.Rate.IP),
		rate.ScopeUserName:  toBudget(cfg.Rate.UserName),
		rate.ScopeUserAgent: toBudget(cfg.Rate.UserAgent),
		rate.ScopeGlobal:    toBudget(cfg.Rate.Global),
	}
	limiter := rate.NewScoped(backend, budgets, cfg.Rate.Enabled)

	lockoutPolicy := lockout.New(st.Users())
	lockoutPolicy.MaxFailed = cfg.Auth.Lockout.MaxFailed
	lockoutPolicy.LockDuration = cfg.Auth.Lockout.LockDuration
	lockoutPolicy.StrikeWindow = cfg.Auth.Lockout.StrikeWindow
	lockoutPolicy.MaxStrikes = cfg.Auth.Lockout.MaxStrikes

	tokens := &token.Service{
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		AccessSecret:  []byte(cfg.JWT.AccessSecret),
		RefreshSecret: []byte(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Users:         st.Users(),
		Tokens:        st.RefreshTokens(),
		CookieName:    cfg.Auth.Cookie.Name,
		CookiePath:    cfg.Auth.Cookie.Path,
		CookieSecure:  cfg.IsProd(),
	}

	engine := permsync.New(st.RolePermissions(), st.Roles(), catalog.Default, locker)

	return &App{
		Cfg:     cfg,
		Store:   st,
		Limiter: limiter,
		Lockout: lockoutPolicy,
		Tokens:  tokens,
		Engine:  engine,
	}, nil
}

func toBudget(s config.ScopeRate) rate.Budget {
	return rate.Budget{Points: s.Points, Window: s.Window, Block: s.Block}
}

// Router arma el handler HTTP completo.
func (a *App) Router() *sessionctl.Controller {
	return sessionctl.NewController(sessionctl.Deps{
		Users:   a.Store.Users(),
		Limiter: a.Limiter,
		Lockout: a.Lockout,
		Tokens:  a.Tokens,
		Pepper:  a.Cfg.Auth.Pepper,
	})
}

// Run sincroniza permisos al boot y sirve HTTP hasta que ctx se cancele.
func (a *App) Run(ctx context.Context) error {
	if err := a.Engine.SyncAll(ctx); err != nil {
		return fmt.Errorf("app: boot permission sync: %w", err)
	}

	ctl := a.Router()
	handler := ihttp.NewRouter(ihttp.RouterConfig{
		Session: ihttp.SessionHandlers{
			SignIn:  ctl.SignIn,
			Refresh: ctl.Refresh,
			SignOut: ctl.SignOut,
		},
		Metrics:       ihttp.RegisterMetrics(prometheus.DefaultRegisterer),
		Ready:         a.Store.Ping,
		ThrottleRPS:   a.Cfg.Server.ThrottleRPS,
		ThrottleBurst: a.Cfg.Server.ThrottleBurst,
	})
	defer a.Store.Close()
	return ihttp.Serve(ctx, a.Cfg.Server.Addr, handler)
}
