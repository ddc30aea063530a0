package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lukasbauer/calltranslator/internal/app"
	"github.com/lukasbauer/calltranslator/internal/httpapi"
	"golang.org/x/sync/errgroup"
)

func main() {
	operatorToken := flag.String("operator-token", "", "print an operator token for `name` and exit")
	tokenTTL := flag.Duration("operator-token-ttl", 12*time.Hour, "lifetime of the printed operator token")
	flag.Parse()

	cfg := app.LoadConfigFromEnv()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	if *operatorToken != "" {
		token, expiresAt, err := httpapi.IssueOperatorToken(cfg.AdminJWTSecret, *operatorToken, *tokenTTL)
		if err != nil {
			logger.Fatalf("issue operator token: %v", err)
		}
		fmt.Printf("%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
		return
	}

	// Initialize Sentry for error monitoring
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		})
		if err != nil {
			logger.Printf("sentry init failed: %v", err)
		} else {
			logger.Printf("sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Calls run on their own context so a shutdown signal does not cut off
	// translations for calls that are still draining.
	callCtx, cancelCalls := context.WithCancel(context.Background())
	defer cancelCalls()

	a, err := app.New(callCtx, cfg, logger)
	if err != nil {
		if cfg.SentryDSN != "" {
			sentry.CaptureException(err)
			sentry.Flush(2 * time.Second)
		}
		logger.Fatalf("init app: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		calls := a.Calls()
		calls.StartDraining()
		logger.Printf("shutting down, draining %d active calls", calls.ActiveCount())

		drained := make(chan struct{})
		go func() {
			calls.Wait()
			close(drained)
		}()
		select {
		case <-drained:
			logger.Printf("all calls finished")
		case <-time.After(cfg.DrainTimeout):
			logger.Printf("drain timeout after %s, %d calls still active", cfg.DrainTimeout, calls.ActiveCount())
		}
		cancelCalls()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Printf("server: %v", err)
	}
	_ = a.Close()
}
