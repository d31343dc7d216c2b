package councilkit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/opencouncil/councilkit/pkg/census"
	"github.com/opencouncil/councilkit/pkg/config"
	"github.com/opencouncil/councilkit/pkg/dbrouter"
	"github.com/opencouncil/councilkit/pkg/guard"
	"github.com/opencouncil/councilkit/pkg/httpserver"
	"github.com/opencouncil/councilkit/pkg/pg"
	"github.com/opencouncil/councilkit/pkg/redis"
	"github.com/opencouncil/councilkit/pkg/switchboard"
	"github.com/opencouncil/councilkit/pkg/tenant"
)

// Config is the top-level platform configuration not covered by the
// per-package config structs.
type Config struct {
	GuardTokenSecret string        `env:"GUARD_TOKEN_SECRET,required"`       // GuardTokenSecret signs password reset tokens.
	ResetTokenTTL    time.Duration `env:"GUARD_RESET_TOKEN_TTL" envDefault:"1h"`
	TenantCacheTTL   time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`  // TenantCacheTTL bounds registry cache staleness.
	CensusCacheTTL   time.Duration `env:"CENSUS_CACHE_TTL" envDefault:"30s"` // CensusCacheTTL bounds how often the health endpoint re-runs the census.
}

// Platform assembles the tenant core: registry, resolver, connection router,
// guard router, switch pipeline, and aggregator, all bound to the central
// database and the shared Redis.
type Platform struct {
	Log      *slog.Logger
	Central  *pgxpool.Pool
	Redis    *goredis.Client
	Tenants  *tenant.CachedStore
	Resolver *tenant.HostResolver
	Conns    *dbrouter.Router
	Guards   *guard.Router
	Pipeline *switchboard.Pipeline
	Census   *census.Aggregator

	cfg    Config
	server *httpserver.Server
}

// New loads configuration from the environment, connects the central
// resources, and wires the tenant core together.
func New(ctx context.Context, log *slog.Logger) (*Platform, error) {
	if log == nil {
		log = slog.Default()
	}

	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return nil, err
	}
	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return nil, err
	}
	var resolverCfg tenant.ResolverConfig
	if err := config.Load(&resolverCfg); err != nil {
		return nil, err
	}
	var routerCfg dbrouter.Config
	if err := config.Load(&routerCfg); err != nil {
		return nil, err
	}
	var pipelineCfg switchboard.Config
	if err := config.Load(&pipelineCfg); err != nil {
		return nil, err
	}
	var censusCfg census.Config
	if err := config.Load(&censusCfg); err != nil {
		return nil, err
	}
	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return nil, err
	}

	central, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx, central, pgCfg, log); err != nil {
		central.Close()
		return nil, err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		central.Close()
		return nil, err
	}

	tenants := tenant.NewCachedStore(tenant.NewPGStore(central), cfg.TenantCacheTTL)
	conns := dbrouter.New(dbrouter.PgxOpener(routerCfg), log)
	guards := guard.NewRouter(central, cfg.GuardTokenSecret,
		guard.WithResetTokenTTL(cfg.ResetTokenTTL),
	)

	pipeline, err := switchboard.New(pipelineCfg, switchboard.Deps{
		Router:    conns,
		Guards:    guards,
		CentralDB: central,
		Cache:     redisClient,
	}, switchboard.WithLogger(log))
	if err != nil {
		central.Close()
		_ = redisClient.Close()
		return nil, err
	}

	agg := census.New(tenants, pipeline,
		[]func(context.Context) error{
			pg.Healthcheck(central),
			redis.Healthcheck(redisClient),
		},
		census.WithProbeTimeout(censusCfg.ProbeTimeout),
		census.WithLogger(log),
	)

	return &Platform{
		Log:      log,
		Central:  central,
		Redis:    redisClient,
		Tenants:  tenants,
		Resolver: tenant.NewHostResolver(resolverCfg),
		Conns:    conns,
		Guards:   guards,
		Pipeline: pipeline,
		Census:   agg,
		cfg:      cfg,
		server:   httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)),
	}, nil
}

// Routes builds the base router: the tenant middleware around everything,
// plus liveness and census health endpoints that bypass tenant resolution.
// Business handlers mount on the returned router and can assume their scope
// is fully activated.
func (p *Platform) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(switchboard.Middleware(p.Resolver, p.Tenants, p.Pipeline,
		switchboard.WithSkipPaths([]string{"/livez", "/healthz"}),
		switchboard.WithMiddlewareLogger(p.Log),
	))

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})
	r.Get("/healthz", census.Handler(p.Census, nil, p.cfg.CensusCacheTTL, p.Log))

	return r
}

// Run serves the handler until ctx is done or a termination signal arrives,
// then drains in-flight requests and closes every tenant pool.
func (p *Platform) Run(ctx context.Context, handler http.Handler) error {
	defer p.close(ctx)
	return p.server.Run(ctx, handler)
}

// DeleteTenant removes a tenant: its pooled connections are drained and
// closed before the registry row disappears.
func (p *Platform) DeleteTenant(ctx context.Context, id string) error {
	t, err := tenant.Lookup(ctx, p.Tenants, id)
	if err != nil {
		return err
	}
	return tenant.Deprovision(ctx, p.Tenants, p.Conns, t.ID)
}

func (p *Platform) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := p.Conns.Close(ctx); err != nil {
		p.Log.ErrorContext(ctx, "failed to drain tenant pools", slog.Any("error", err))
	}
	p.Central.Close()
	if err := p.Redis.Close(); err != nil {
		p.Log.ErrorContext(ctx, "failed to close redis client", slog.Any("error", err))
	}
}
