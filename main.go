package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
	"github.com/jalad-shrimali/cdr-rollup/config"
	"github.com/jalad-shrimali/cdr-rollup/handlers"
	"github.com/jalad-shrimali/cdr-rollup/lookup"
	"github.com/jalad-shrimali/cdr-rollup/middleware"
	"github.com/jalad-shrimali/cdr-rollup/pipeline"
	"github.com/jalad-shrimali/cdr-rollup/publish"
)

/* ──────────── command tree ──────────── */

var (
	rulesFile string

	cfg   *config.Config
	rules *config.Rules

	rootCmd = &cobra.Command{
		Use:               "cdr-rollup",
		Short:             "Roll up contact-center call detail records into an analysis workbook",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "rule file (overrides RULES_FILE)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(filterCmd())
	rootCmd.AddCommand(departmentsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and rules and configures the global logger.
func setup(cmd *cobra.Command, _ []string) error {
	zerolog.TimeFieldFormat = time.RFC3339

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cmd.Flags().Changed("rules") {
		cfg.RulesFile = rulesFile
	}
	rules, err = config.LoadRules(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	return nil
}

// newPipeline wires normalizer, classifier, team lookup and calendar from the
// loaded configuration. Team tables layer as built-in, then LOOKUP_DB, then the
// rule file.
func newPipeline() (*pipeline.Pipeline, error) {
	classifier, err := rules.Classifier()
	if err != nil {
		return nil, err
	}
	cal, err := rules.Calendar(cfg.DeploymentCutover)
	if err != nil {
		return nil, err
	}

	base, err := lookup.Defaults()
	if err != nil {
		return nil, err
	}
	layers := []lookup.Teams{base}
	if cfg.LookupDB != "" {
		db, err := lookup.LoadSQLite(cfg.LookupDB)
		if err != nil {
			return nil, err
		}
		layers = append(layers, db)
	}
	overrides, err := rules.TeamTable()
	if err != nil {
		return nil, err
	}
	teams := lookup.Merge(append(layers, overrides)...)

	log.Debug().
		Int("teams", len(teams)).
		Int("category_tags", len(classifier.Tags())).
		Str("rules", cfg.RulesFile).
		Msg("pipeline configured")

	return pipeline.New(
		pipeline.WithNormalizer(cdr.NewNormalizer(cfg.Location)),
		pipeline.WithClassifier(classifier),
		pipeline.WithResolver(cdr.NewResolver(teams)),
		pipeline.WithCalendar(cal),
		pipeline.WithLogger(log.Logger),
	), nil
}

func newPublisher(ctx context.Context) (publish.Publisher, error) {
	if cfg.S3Bucket == "" {
		return publish.Noop{}, nil
	}
	return publish.NewS3Publisher(ctx, publish.S3Config{
		Bucket: cfg.S3Bucket,
		Prefix: cfg.S3Prefix,
		Region: cfg.AWSRegion,
	})
}

/* ──────────── serve ──────────── */

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload and download HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	pub, err := newPublisher(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Str("output_dir", cfg.OutputDir).
		Bool("s3", cfg.S3Bucket != "").
		Msg("starting cdr-rollup server")

	h := handlers.New(p, handlers.Options{
		UploadDir:      cfg.UploadDir,
		OutputDir:      cfg.OutputDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Publisher:      pub,
		Logger:         log.Logger,
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Mount("/", h.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
