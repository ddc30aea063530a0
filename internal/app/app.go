package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/calltranslator/internal/eventlog"
	"github.com/lukasbauer/calltranslator/internal/httpapi"
	"github.com/lukasbauer/calltranslator/internal/jambonz"
	"github.com/lukasbauer/calltranslator/internal/notifications"
	"github.com/lukasbauer/calltranslator/internal/translate"
	"github.com/lukasbauer/calltranslator/internal/translator"
)

type App struct {
	cfg       Config
	logger    *log.Logger
	db        *pgxpool.Pool
	eventLog  *eventlog.Logger
	dashboard *notifications.Dashboard
	calls     *translator.Registry
}

// New wires the application. ctx bounds background work started by calls;
// cancel it only after the registry has drained.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*App, error) {
	// Keeps TCP connections alive to the translation API, which is hit once
	// per utterance.
	httpClient := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	a := &App{cfg: cfg, logger: logger}

	if cfg.DatabaseURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		db, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(dbCtx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
	} else {
		logger.Printf("DATABASE_URL not set, call event log disabled")
	}

	a.eventLog = eventlog.New(a.db)
	if err := a.eventLog.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("event log schema: %w", err)
	}

	engine, err := newEngine(ctx, cfg, httpClient)
	if err != nil {
		a.Close()
		return nil, err
	}
	if engine == nil {
		logger.Printf("no %s API key configured, translations will be empty", cfg.TranslateProvider)
	}

	a.dashboard = notifications.NewDashboard(notifications.DashboardConfig{
		BaseURL:    cfg.DashboardURL,
		Agent:      cfg.TargetAgent,
		JWTSecret:  cfg.DashboardJWTSecret,
		HTTPClient: httpClient,
	}, logger)

	deps := translator.Deps{
		Translator: translate.NewGateway(engine, logger),
		Logger:     logger,
	}
	if a.dashboard.Enabled() {
		deps.Notifier = a.dashboard
	}
	if a.eventLog.Enabled() {
		deps.Events = a.eventLog
	}
	a.calls = translator.NewRegistry(ctx, cfg.Settings(), deps)

	return a, nil
}

// newEngine builds the configured translation engine. It returns nil
// without error when the provider has no API key.
func newEngine(ctx context.Context, cfg Config, httpClient *http.Client) (translate.Engine, error) {
	switch cfg.TranslateProvider {
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		return translate.NewOpenAIClient(translate.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			HTTPClient: httpClient,
		}), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		client, err := translate.NewGeminiClient(ctx, translate.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown TRANSLATE_PROVIDER %q", cfg.TranslateProvider)
	}
}

// Calls returns the live call registry.
func (a *App) Calls() *translator.Registry {
	return a.calls
}

func (a *App) Router() http.Handler {
	endpoint := jambonz.NewEndpoint(a.calls, a.logger, a.cfg.LogLevel == "debug")
	routerCfg := httpapi.RouterConfig{
		AdminJWTSecret: a.cfg.AdminJWTSecret,
	}
	return httpapi.NewRouter(routerCfg, a.logger, endpoint, a.calls, a.eventLog)
}

// Close waits for pending dashboard posts and releases the database.
// Call it after the registry has drained.
func (a *App) Close() error {
	if a.dashboard != nil {
		a.dashboard.Wait()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
