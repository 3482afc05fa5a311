// Package main is the entrypoint for the Wisedom API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wisedom/wisedom/internal/activity"
	"github.com/wisedom/wisedom/internal/cache"
	"github.com/wisedom/wisedom/internal/config"
	"github.com/wisedom/wisedom/internal/handler"
	"github.com/wisedom/wisedom/internal/integration"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/middleware"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/ratelimit"
	"github.com/wisedom/wisedom/internal/repository"
	"github.com/wisedom/wisedom/internal/server"
	"github.com/wisedom/wisedom/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	var recorder metrics.Recorder = metrics.NewNoop()
	var exporter http.Handler
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		recorder = prom
		exporter = prom.Handler()
	}

	app := buildApp(cfg, repo, cacheClient, recorder, logger)
	r := setupRouter(cfg, app, repo, cacheClient, recorder, exporter, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Registered first so it stops last: workers may still publish while draining.
	srv.OnShutdown("activity_publisher", app.publisher.Shutdown)
	if app.closeLimiter != nil {
		srv.OnShutdown("rate_limiter", func(context.Context) error {
			app.closeLimiter()
			return nil
		})
	}
	if cfg.ActivityWorkerEnabled {
		worker := activity.NewWorker(cacheClient.Client(), app.insights, logger, activity.NewConsumerID(), recorder)
		srv.Go("activity_worker", worker.Run)
		srv.OnShutdown("activity_worker", worker.Shutdown)

		sweeper := activity.NewSweeper(repo, app.insights, cfg.StrengthSweepInterval, logger)
		srv.Go("strength_sweeper", sweeper.Run)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.AppBaseURL,
		"env", cfg.AppEnv,
		"rate_limit_backend", cfg.RateLimitBackend,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// app holds the services and handlers built from configuration.
type app struct {
	limiter      ratelimit.Limiter
	closeLimiter func()
	publisher    *activity.Publisher
	insights     *service.InsightService

	auth          *handler.AuthHandler
	contacts      *handler.ContactHandler
	projects      *handler.ProjectHandler
	members       *handler.MemberHandler
	tasks         *handler.TaskHandler
	interactions  *handler.InteractionHandler
	relationships *handler.RelationshipHandler
	events        *handler.SecurityEventHandler
	insightsH     *handler.InsightHandler
	integrations  *handler.IntegrationHandler
}

func buildApp(cfg *config.Config, repo *repository.Repository, cacheClient *cache.Cache, recorder metrics.Recorder, logger *slog.Logger) *app {
	a := &app{}

	limiterCfg := ratelimit.Config{
		MaxTokens:  cfg.RateLimitMaxTokens,
		RefillRate: cfg.RateLimitRefillRate,
		IdleTTL:    cfg.RateLimitIdleTTL,
	}
	if cfg.RateLimitBackend == config.RateLimitBackendRedis {
		a.limiter = ratelimit.NewRedisLimiter(cacheClient, limiterCfg, logger)
	} else {
		mem := ratelimit.NewMemoryLimiter(limiterCfg)
		a.limiter = mem
		a.closeLimiter = mem.Close
	}

	a.publisher = activity.NewPublisher(cacheClient.Client(), logger, recorder)

	events := service.NewSecurityEventService(repo, logger)
	authSvc := service.NewAuthService(repo, cacheClient, events, service.AuthConfig{
		SessionTTL:       cfg.SessionTTL,
		ResetTTL:         cfg.PasswordResetTTL,
		ExposeResetToken: cfg.IsDevelopment(),
	}, recorder, logger)
	contactSvc := service.NewContactService(repo, recorder, logger)
	projectSvc := service.NewProjectService(repo, events, recorder, logger)
	memberSvc := service.NewMemberService(repo, events, recorder, logger)
	taskSvc := service.NewTaskService(repo, recorder, logger)
	interactionSvc := service.NewInteractionService(repo, a.publisher, recorder, logger)
	relationshipSvc := service.NewRelationshipService(repo, recorder, logger)
	a.insights = service.NewInsightService(repo, logger)

	registry := integration.NewRegistry(integration.RegistryConfig{
		BaseURL:  cfg.AppBaseURL,
		Google:   integration.Credentials{ClientID: cfg.GoogleClientID, ClientSecret: cfg.GoogleClientSecret},
		LinkedIn: integration.Credentials{ClientID: cfg.LinkedInClientID, ClientSecret: cfg.LinkedInClientSecret},
	})
	for _, p := range model.Providers {
		logger.Info("integration_provider", "provider", p, "enabled", cfg.ProviderEnabled(p))
	}
	integrationSvc := service.NewIntegrationService(
		repo,
		cacheClient,
		registry,
		integration.NewClient(nil),
		a.publisher,
		service.IntegrationConfig{StateTTL: cfg.OAuthStateTTL, FrontendURL: cfg.FrontendURL},
		recorder,
		logger,
	)

	a.auth = handler.NewAuthHandler(authSvc, logger)
	a.contacts = handler.NewContactHandler(contactSvc, logger)
	a.projects = handler.NewProjectHandler(projectSvc, logger)
	a.members = handler.NewMemberHandler(memberSvc, logger)
	a.tasks = handler.NewTaskHandler(taskSvc, logger)
	a.interactions = handler.NewInteractionHandler(interactionSvc, logger)
	a.relationships = handler.NewRelationshipHandler(relationshipSvc, logger)
	a.events = handler.NewSecurityEventHandler(events, logger)
	a.insightsH = handler.NewInsightHandler(a.insights, logger)
	a.integrations = handler.NewIntegrationHandler(integrationSvc, logger)
	return a
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	cfg *config.Config,
	a *app,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	recorder metrics.Recorder,
	exporter http.Handler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()
	h := handler.New(logger)

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.GetCORSAllowedOrigins())))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health endpoints (no auth required)
	healthHandler := handler.NewHealthHandler(repo, cacheClient, logger)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	if exporter != nil {
		r.Get("/metrics", handler.NewMetricsHandler(exporter).Metrics)
	}

	requireAuth := middleware.Auth(middleware.AuthConfig{
		Logger:   logger,
		Sessions: repo,
		Cache:    cacheClient,
		CacheTTL: cfg.SessionCacheTTL,
		Metrics:  recorder,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Enabled: cfg.RateLimitEnabled,
			Limiter: a.limiter,
			Logger:  logger,
			Metrics: recorder,
		}))

		// Public routes
		r.Post("/auth/signup", a.auth.Signup)
		r.Post("/auth/login", a.auth.Login)
		r.Post("/auth/password-reset", a.auth.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", a.auth.ConfirmPasswordReset)
		r.Get("/integrations/{provider}/callback", a.integrations.Callback)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/auth/logout", a.auth.Logout)
			r.Get("/auth/me", a.auth.Me)

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", a.contacts.List)
				r.Post("/", a.contacts.Create)
				r.Get("/duplicates", a.contacts.Duplicates)
				r.Post("/import", a.contacts.Import)
				r.Get("/{id}", a.contacts.Get)
				r.Patch("/{id}", a.contacts.Update)
				r.Delete("/{id}", a.contacts.Delete)
				r.Get("/{id}/strength", a.contacts.Strength)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", a.projects.List)
				r.Post("/", a.projects.Create)
				r.Get("/{id}", a.projects.Get)
				r.Patch("/{id}", a.projects.Update)
				r.Delete("/{id}", a.projects.Delete)
				r.Get("/{id}/analytics", a.projects.Analytics)
			})

			r.Route("/project-members", func(r chi.Router) {
				r.Get("/", a.members.List)
				r.Post("/", a.members.Add)
				r.Patch("/{id}", a.members.Update)
				r.Delete("/{id}", a.members.Remove)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", a.tasks.List)
				r.Post("/", a.tasks.Create)
				r.Get("/{id}", a.tasks.Get)
				r.Patch("/{id}", a.tasks.Update)
				r.Delete("/{id}", a.tasks.Delete)
			})

			r.Route("/contact-interactions", func(r chi.Router) {
				r.Get("/", a.interactions.List)
				r.Post("/", a.interactions.Create)
				r.Get("/{id}", a.interactions.Get)
				r.Patch("/{id}", a.interactions.Update)
				r.Delete("/{id}", a.interactions.Delete)
			})

			r.Route("/contact-relationships", func(r chi.Router) {
				r.Get("/", a.relationships.List)
				r.Post("/", a.relationships.Create)
				r.Get("/{id}", a.relationships.Get)
				r.Patch("/{id}", a.relationships.Update)
				r.Delete("/{id}", a.relationships.Delete)
			})

			r.Route("/security-events", func(r chi.Router) {
				r.Get("/", a.events.List)
				r.Post("/", a.events.Create)
			})

			r.Route("/insights", func(r chi.Router) {
				r.Get("/follow-ups", a.insightsH.FollowUps)
				r.Get("/birthdays", a.insightsH.Birthdays)
				r.Get("/action-items", a.insightsH.ActionItems)
				r.Get("/priorities", a.insightsH.Priorities)
			})

			r.Route("/integrations", func(r chi.Router) {
				r.Get("/google_calendar/events", a.integrations.CalendarEvents)
				r.Post("/google_calendar/events", a.integrations.CreateCalendarEvent)
				r.Get("/{provider}/auth", a.integrations.AuthURL)
				r.Get("/{provider}/status", a.integrations.Status)
				r.Post("/{provider}/sync", a.integrations.Sync)
				r.Delete("/{provider}", a.integrations.Disconnect)
			})
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
