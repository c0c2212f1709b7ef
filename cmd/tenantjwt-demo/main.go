// Command tenantjwt-demo serves a small API protected by per-tenant bearer
// authentication. Tenants are configured in a YAML file, in the environment
// and optionally in Redis.
//
//	TENANTJWT_CONFIG=tenants.yaml TENANTJWT_ADDR=:8080 tenantjwt-demo
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	tenantjwt "github.com/auth0/go-tenant-jwt-middleware"
	"github.com/auth0/go-tenant-jwt-middleware/domain"
	"github.com/auth0/go-tenant-jwt-middleware/jwks"
	"github.com/auth0/go-tenant-jwt-middleware/tenant"
	"github.com/auth0/go-tenant-jwt-middleware/tenantconfig"
)

type settings struct {
	Addr           string        `env:"TENANTJWT_ADDR,default=:8080"`
	Env            string        `env:"TENANTJWT_ENV,default=dev"`
	ConfigFile     string        `env:"TENANTJWT_CONFIG,default=tenants.yaml"`
	EnvPrefix      string        `env:"TENANTJWT_ENV_PREFIX,default=TENANTJWT_"`
	Policy         string        `env:"TENANTJWT_TENANT_POLICY"`
	SuffixList     string        `env:"TENANTJWT_SUFFIX_LIST"`
	TrustProxy     bool          `env:"TENANTJWT_TRUST_PROXY,default=false"`
	Realm          string        `env:"TENANTJWT_REALM"`
	RedisAddr      string        `env:"TENANTJWT_REDIS_ADDR"`
	RedisPrefix    string        `env:"TENANTJWT_REDIS_PREFIX,default=tenantjwt:"`
	FetchTimeout   time.Duration `env:"TENANTJWT_FETCH_TIMEOUT,default=10s"`
	MaxAuthorities int           `env:"TENANTJWT_MAX_AUTHORITIES,default=1000"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// defaultPolicy cannot be a tag default: envdecode splits tags on commas.
const defaultPolicy = "claim,query,subdomain"

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	log := newLogger(os.Getenv("TENANTJWT_ENV"))
	defer func() { _ = log.Sync() }()

	var cfg settings
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		log.Fatalw("failed to decode settings", "error", err)
	}
	if cfg.Policy == "" {
		cfg.Policy = defaultPolicy
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalw("tenantjwt-demo failed", "error", err)
	}
}

func newLogger(env string) *zap.SugaredLogger {
	var z *zap.Logger
	if env == "prod" {
		z, _ = zap.NewProduction()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z.Sugar()
}

func run(ctx context.Context, cfg settings, log *zap.SugaredLogger) error {
	logger := tenantjwt.NewZapLogger(log)

	source, closeSource, err := configSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	fetcher, err := jwks.NewProvider(jwks.WithCustomClient(&http.Client{Timeout: cfg.FetchTimeout}))
	if err != nil {
		return err
	}
	cache, err := jwks.NewCache(fetcher,
		jwks.WithLogger(logger),
		jwks.WithFetchTimeout(cfg.FetchTimeout),
		jwks.WithMaxEntries(cfg.MaxAuthorities),
	)
	if err != nil {
		return err
	}
	resolver, err := tenantconfig.NewResolver(source, cache)
	if err != nil {
		return err
	}

	identifier, err := tenantIdentifier(cfg)
	if err != nil {
		return err
	}

	metrics, err := tenantjwt.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	tracer, shutdownTracing, err := newTracer(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	handler, err := tenantjwt.NewHandler(resolver,
		tenantjwt.WithTenantIdentifier(identifier),
		tenantjwt.WithRealm(cfg.Realm),
		tenantjwt.WithLogger(logger),
		tenantjwt.WithMetrics(metrics),
		tenantjwt.WithTracer(tracer),
	)
	if err != nil {
		return err
	}
	middleware, err := tenantjwt.New(handler, tenantjwt.WithExclusionUrls([]string{"/healthz", "/metrics"}))
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(middleware.CheckJWT)
		r.Get("/me", me)
		r.With(func(next http.Handler) http.Handler {
			return middleware.RequireRole("admin", next)
		}).Get("/admin", me)
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() {
		log.Infow("tenantjwt-demo listening", "addr", cfg.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// configSource layers Redis over the environment over the watched file.
func configSource(ctx context.Context, cfg settings, logger tenantjwt.Logger) (tenantconfig.Source, func(), error) {
	file, err := tenantconfig.WatchFile(ctx, cfg.ConfigFile, logger)
	if err != nil {
		return nil, nil, err
	}
	env, err := tenantconfig.EnvSource(cfg.EnvPrefix)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}

	sources := []tenantconfig.Source{file, env}
	closers := []func() error{file.Close}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = file.Close()
			return nil, nil, err
		}
		sources = append(sources, tenantconfig.NewRedisSource(client, cfg.RedisPrefix))
		closers = append(closers, client.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	return tenantconfig.Layered(sources...), closeAll, nil
}

func tenantIdentifier(cfg settings) (tenant.Identifier, error) {
	opts := tenant.PolicyOptions{Parser: domain.NewParser()}
	if cfg.SuffixList != "" {
		f, err := os.Open(cfg.SuffixList)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rules, err := domain.ReadRules(f)
		if err != nil {
			return nil, err
		}
		opts.Parser = domain.NewParser(rules...)
	}
	if cfg.TrustProxy {
		opts.Proxies = tenant.StandardProxy()
	}
	return tenant.FromPolicy(cfg.Policy, opts)
}

func newTracer(ctx context.Context, cfg settings) (tenantjwt.Tracer, func(), error) {
	if cfg.OTLPEndpoint == "" {
		return tenantjwt.NoopTracer{}, func() {}, nil
	}

	var opts []otlptracehttp.Option
	if strings.HasPrefix(strings.ToLower(cfg.OTLPEndpoint), "http://") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}
	return tenantjwt.NewOpenTelemetryTracer(provider.Tracer("tenantjwt-demo")), shutdown, nil
}

func me(w http.ResponseWriter, r *http.Request) {
	result, _ := tenantjwt.ResultFromContext(r.Context())
	principal := result.Principal

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"tenant":  result.TenantID,
		"subject": principal.Subject(),
		"name":    principal.Name(),
		"roles":   principal.Roles(),
	})
}
