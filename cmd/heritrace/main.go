// Package main provides the heritrace binary entry point.
// It serves the SHACL-driven form and validation API and exposes the same
// operations as one-shot commands.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/heritrace/api"
	"github.com/c360studio/heritrace/config"
	"github.com/c360studio/heritrace/export"
	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/shacl"
	"github.com/c360studio/heritrace/storage"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "heritrace"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals holds the persistent flags and what they resolve to.
type globals struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "SHACL-driven metadata curation",
		Long: `Heritrace resolves SHACL shapes into form descriptions and validates
proposed triple edits against them.

It provides:
- Form field trees derived from shapes and display rules
- Validation of create, update and delete edits with localized messages
- Entity creation and RDF export over a JSON HTTP API`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.init()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(g),
		formsCmd(g),
		validateCmd(g),
		exportCmd(g),
		versionCmd(),
	)
	return cmd
}

func (g *globals) init() error {
	g.logger = newLogger(g.logLevel)
	slog.SetDefault(g.logger)

	loader := config.NewLoader(g.logger)
	var err error
	if g.configPath != "" {
		g.cfg, err = loader.LoadFile(g.configPath)
	} else {
		g.cfg, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

func serveCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form, validation and entity API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), g.cfg, g.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.enableEvents(signalCtx); err != nil {
		return fmt.Errorf("change events: %w", err)
	}

	reloader, err := a.reloader()
	if err != nil {
		return fmt.Errorf("load shapes: %w", err)
	}
	defer func() {
		if err := reloader.Stop(); err != nil {
			logger.Warn("Failed to stop watcher", "error", err)
		}
	}()
	if cfg.Shapes.Watching() {
		if err := reloader.Start(signalCtx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
	}

	uris, err := a.generator(signalCtx)
	if err != nil {
		return fmt.Errorf("uri generator: %w", err)
	}

	handler := api.NewHTTPHandler(reloader, a.store, uris, logger)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServeMux(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Heritrace ready",
			"version", Version,
			"addr", cfg.Server.Addr,
			"backend", cfg.Data.Backend,
			"watch", cfg.Shapes.Watching())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-signalCtx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping server", "error", err)
	}
	logger.Info("Heritrace shutdown complete")
	return nil
}

func formsCmd(g *globals) *cobra.Command {
	var class string

	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Print the form field tree as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g.cfg, g.logger)
			if err != nil {
				return err
			}
			r, err := a.resolver()
			if err != nil {
				return err
			}

			forms := r.FormFields()
			if class != "" {
				forms = r.FormFieldsFor(graph.IRI(class))
			}
			if forms == nil {
				forms = shacl.Forms{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(forms)
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "Only forms for this class IRI")
	return cmd
}

func validateCmd(g *globals) *cobra.Command {
	var (
		subject, predicate, value string
		action, oldValue, lang    string
		types                     []string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate one triple edit",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireIRI("subject", subject)
			if err != nil {
				return err
			}
			p, err := requireIRI("predicate", predicate)
			if err != nil {
				return err
			}
			act, err := shacl.ParseAction(action)
			if err != nil {
				return err
			}
			req := shacl.Request{
				Subject:   s,
				Predicate: p,
				Value:     value,
				Action:    act,
				Language:  lang,
			}
			if oldValue != "" {
				req.OldValue = graph.ParseTerm(oldValue)
			}
			for _, t := range types {
				class, err := requireIRI("type", t)
				if err != nil {
					return err
				}
				req.EntityTypes = append(req.EntityTypes, class)
			}

			a, err := newApp(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			r, err := a.resolver()
			if err != nil {
				return err
			}

			res, err := r.ValidateNewTriple(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject IRI")
	cmd.Flags().StringVar(&predicate, "predicate", "", "Predicate IRI")
	cmd.Flags().StringVar(&value, "value", "", "New value")
	cmd.Flags().StringVar(&action, "action", "create", "Edit action (create, update, delete)")
	cmd.Flags().StringVar(&oldValue, "old-value", "", "Value being replaced or deleted")
	cmd.Flags().StringVar(&lang, "lang", "", "Message language (e.g., en, it)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Entity type IRI for entities not yet stored (repeatable)")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("predicate")
	return cmd
}

var (
	errRejected = errors.New("edit rejected")
	errUsage    = errors.New("invalid argument")
)

// requireIRI rejects flag values that are not absolute IRIs, since subjects
// and predicates end up inside SPARQL queries.
func requireIRI(flag, value string) (graph.IRI, error) {
	if !graph.LooksLikeIRI(value) {
		return "", fmt.Errorf("%w: --%s must be an absolute IRI, got %q", errUsage, flag, value)
	}
	return graph.IRI(value), nil
}

// printResult writes the accepted term, or the rejection message and an
// error so that the exit status reflects the outcome.
func printResult(cmd *cobra.Command, res shacl.Result) error {
	out := cmd.OutOrStdout()
	if !res.OK() {
		fmt.Fprintln(out, res.Error)
		return errRejected
	}
	if res.Value != nil {
		fmt.Fprintf(out, "value: %s\n", res.Value.NTriples())
	}
	if res.Previous != nil {
		fmt.Fprintf(out, "previous: %s\n", res.Previous.NTriples())
	}
	return nil
}

func exportCmd(g *globals) *cobra.Command {
	var uri, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an entity and its dependants as RDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireIRI("uri", uri); err != nil {
				return err
			}
			a, err := newApp(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			return exportEntity(cmd.Context(), a.store, uri, format, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&uri, "uri", "", "Entity IRI")
	cmd.Flags().StringVar(&format, "format", "turtle", "Output format (turtle, ntriples, jsonld)")
	_ = cmd.MarkFlagRequired("uri")
	return cmd
}

func exportEntity(ctx context.Context, store storage.EntityStore, uri, format string, w io.Writer) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	subject, err := requireIRI("uri", uri)
	if err != nil {
		return err
	}
	g, err := store.Describe(ctx, subject)
	if err != nil {
		return err
	}
	exporter := export.NewRDFExporter()
	exporter.AddGraph(g)
	doc, err := exporter.Export(f)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, doc)
	return err
}
