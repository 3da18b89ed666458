// Command marginalia highlights, annotates and discusses research papers
// from the terminal, keeping everything in sync with the reader backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/marginalia/internal/adapters/driven/ai"
	"github.com/custodia-labs/marginalia/internal/adapters/driven/auth"
	"github.com/custodia-labs/marginalia/internal/adapters/driven/auth/gotrue"
	"github.com/custodia-labs/marginalia/internal/adapters/driven/backend/rest"
	"github.com/custodia-labs/marginalia/internal/adapters/driven/config/file"
	"github.com/custodia-labs/marginalia/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marginalia/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/cli"
	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/core/services"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(func(_ context.Context, opts cli.Options) (*cli.Services, func(), error) {
		return bootstrap(ctx, opts)
	})

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// bootstrap wires adapters into the core services.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings: %w", err)
	}

	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		outboxStore driven.OutboxStore
		credStore   driven.CredentialsStore
	)
	if opts.Ephemeral {
		logger.Debug("using in-memory outbox and session")
		outboxStore = memory.NewOutboxStore()
		credStore = memory.NewCredentialsStore()
	} else {
		store, err := sqlite.NewStore(opts.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening data store: %w", err)
		}
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing data store: %v", err)
			}
		})
		logger.Debug("data store at %s", store.Path())
		outboxStore = store.OutboxStore()
		credStore = store.CredentialsStore()
	}

	authenticator, err := gotrue.New(gotrue.Config{
		URL:     settings.Auth.URL,
		APIKey:  settings.Auth.APIKey,
		Timeout: settings.Backend.Timeout,
	})
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("configuring sign-in: %w", err)
	}
	authService := services.NewAuthService(authenticator, credStore)

	client, err := rest.NewClient(rest.Config{
		BaseURL:   settings.Backend.BaseURL,
		Timeout:   settings.Backend.Timeout,
		RateLimit: settings.Backend.RateLimit,
		Burst:     settings.Backend.Burst,
	}, auth.NewTokenSource(ctx, authService))
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("configuring backend: %w", err)
	}

	fallback := ai.CreateFallback(ctx, *settings)
	closers = append(closers, fallback.Close)

	identity, err := authService.Identity(ctx)
	if err != nil && !errors.Is(err, domain.ErrAuthRequired) {
		logger.Warn("reading session: %v", err)
	}

	outboxService := services.NewOutboxService(outboxStore, client, settings.Outbox.MaxAttempts)
	translator := services.NewTranslator(settings.Highlight)
	readerService := services.NewReaderService(client, outboxService, fallback.Responder, translator, services.ReaderOptions{
		Identity:    identity,
		CallTimeout: settings.Backend.Timeout,
	})

	// Palette edits apply to selections made after the reload.
	watch := func(ctx context.Context, onChange func()) error {
		return configStore.Watch(ctx, func() {
			if fresh, err := settingsService.Get(); err == nil {
				translator.SetPalette(fresh.Highlight)
			}
			if onChange != nil {
				onChange()
			}
		})
	}

	return &cli.Services{
		Reader:      readerService,
		Outbox:      outboxService,
		Auth:        authService,
		Settings:    settingsService,
		WatchConfig: watch,
		Warnings:    fallback.Warnings,
	}, release, nil
}
