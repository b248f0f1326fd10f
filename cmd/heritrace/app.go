package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/heritrace/config"
	"github.com/c360studio/heritrace/shacl"
	"github.com/c360studio/heritrace/storage"
	"github.com/c360studio/heritrace/urigen"
	"github.com/c360studio/heritrace/watch"
)

// app wires the configured components together.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store   storage.EntityStore
	counter storage.Counter

	natsClient *natsclient.Client
}

// newApp opens the configured entity store. The counter is opened lazily
// because only entity creation needs it.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (storage.EntityStore, error) {
	switch cfg.Data.Backend {
	case config.BackendSPARQL:
		logger.Info("Using SPARQL store", "endpoint", cfg.Data.SPARQL.Endpoint)
		return storage.NewSPARQLStore(storage.SPARQLConfig{
			Endpoint:       cfg.Data.SPARQL.Endpoint,
			UpdateEndpoint: cfg.Data.SPARQL.UpdateEndpoint,
			Username:       cfg.Data.SPARQL.Username,
			Password:       cfg.Data.SPARQL.Password,
			Timeout:        cfg.Data.SPARQL.Timeout,
		})
	default:
		if len(cfg.Data.Files) == 0 {
			logger.Info("Using empty in-memory store")
			return storage.NewMemoryStore(nil), nil
		}
		store, err := storage.LoadMemoryStore(cfg.Data.Files...)
		if err != nil {
			return nil, fmt.Errorf("load data: %w", err)
		}
		logger.Info("Loaded in-memory store", "files", strings.Join(cfg.Data.Files, ","))
		return store, nil
	}
}

// loadFunc builds resolvers over the configured shapes, reading entity data
// from the app's store.
func (a *app) loadFunc() watch.LoadFunc {
	return func() (*shacl.Resolver, error) {
		return shacl.Load(a.cfg.Shapes.Files, a.cfg.Shapes.DisplayRules, a.store, shacl.Options{
			MaxDepth: a.cfg.Shapes.MaxDepth,
			Language: a.cfg.Language,
			Logger:   a.logger,
		})
	}
}

// resolver loads a one-off resolver for CLI commands.
func (a *app) resolver() (*shacl.Resolver, error) {
	return a.loadFunc()()
}

// reloader builds the resolver holder used by serve. Watching is started by
// the caller.
func (a *app) reloader() (*watch.Reloader, error) {
	patterns := append([]string{}, a.cfg.Shapes.Files...)
	if a.cfg.Shapes.DisplayRules != "" {
		patterns = append(patterns, a.cfg.Shapes.DisplayRules)
	}
	return watch.New(a.loadFunc(), watch.Config{
		Patterns:      patterns,
		DebounceDelay: a.cfg.Shapes.Debounce,
	}, a.logger)
}

// generator builds the URI generator, connecting to NATS when the counter
// lives there.
func (a *app) generator(ctx context.Context) (urigen.Generator, error) {
	cfg := urigen.Config{
		Kind:           a.cfg.URI.Generator,
		Base:           a.cfg.URI.Base,
		SupplierPrefix: a.cfg.URI.SupplierPrefix,
	}
	if !strings.EqualFold(cfg.Kind, urigen.KindMeta) {
		return urigen.New(cfg, nil)
	}
	counter, err := a.openCounter(ctx)
	if err != nil {
		return nil, err
	}
	return urigen.New(cfg, counter)
}

func (a *app) openCounter(ctx context.Context) (storage.Counter, error) {
	if a.counter != nil {
		return a.counter, nil
	}
	if a.cfg.URI.Counter != config.CounterNATS {
		a.logger.Warn("Using in-memory URI counter; sequence numbers restart with the process")
		a.counter = storage.NewMemoryCounter()
		return a.counter, nil
	}

	client, err := a.nats(ctx)
	if err != nil {
		return nil, err
	}
	js, err := client.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}
	counter, err := storage.NewKVCounter(ctx, js, a.cfg.NATS.Bucket)
	if err != nil {
		return nil, err
	}
	a.counter = counter
	return counter, nil
}

// enableEvents wraps the store so that writes publish change events.
func (a *app) enableEvents(ctx context.Context) error {
	if !a.cfg.NATS.EventsEnabled() {
		return nil
	}
	client, err := a.nats(ctx)
	if err != nil {
		return err
	}
	a.store = storage.NewPublishingStore(a.store, client, a.cfg.NATS.Subject, a.logger)
	a.logger.Info("Publishing change events", "subject", a.cfg.NATS.Subject)
	return nil
}

// nats returns the shared NATS client, connecting on first use.
func (a *app) nats(ctx context.Context) (*natsclient.Client, error) {
	if a.natsClient != nil {
		return a.natsClient, nil
	}
	client, err := connectToNATS(ctx, a.cfg.NATS.URL, a.logger)
	if err != nil {
		return nil, err
	}
	a.natsClient = client
	return client, nil
}

// Close releases the NATS connection, if any.
func (a *app) Close(ctx context.Context) {
	if a.natsClient != nil {
		if err := a.natsClient.Close(ctx); err != nil {
			a.logger.Warn("Failed to close NATS client", "error", err)
		}
	}
}

func connectToNATS(ctx context.Context, url string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("NATS connection failed: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection failed: %w", err)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}
