package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/modalsource/postal/config"
	"github.com/modalsource/postal/internal/api"
	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/store"
	"github.com/modalsource/postal/internal/verifier"
	"github.com/modalsource/postal/internal/webhook"
)

// serveCmd is the cobra command that starts the postal-dns API server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the postal-dns api server",
	Run: func(cmd *cobra.Command, _ []string) {
		err := serve(cmd.Context())
		cobra.CheckErr(err)
	},
}

// init registers the serve command and its flags on the root command
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.PersistentFlags().String("config", "./config/.config.yaml", "config file location")
}

// serve initializes dependencies and starts the postal-dns API server
func serve(ctx context.Context) error {
	cfgPath := k.String("config")

	cfg, err := config.Load(&cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg.Server.Debug = k.Bool("debug")
	cfg.Server.Pretty = k.Bool("pretty")

	st, err := setupStore(cfg)
	if err != nil {
		return fmt.Errorf("setting up store: %w", err)
	}

	v := setupVerifier(cfg)
	svc := setupService(cfg, st, v)

	if cfg.DNS.RecheckInterval > 0 {
		go svc.RunScheduled(ctx, cfg.DNS.RecheckInterval)
	}

	handler := api.NewRouter(api.RouterConfig{
		Service:     svc,
		Store:       st,
		Records:     cfg.RecordConfig(),
		MaxBodySize: cfg.Server.MaxBodySize,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGracePeriod)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	log.Info().Str("listen", cfg.Server.Listen).Msg("starting postal-dns service")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	return nil
}

// setupStore opens the configured domain store
func setupStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Path == ":memory:" {
		log.Info().Msg("using in-memory domain store")

		return store.NewMemory(), nil
	}

	st, err := store.OpenGorm(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}

	log.Info().Str("path", cfg.Database.Path).Msg("using sqlite domain store")

	return st, nil
}

// setupVerifier builds the DNS verifier from config
func setupVerifier(cfg *config.Config) *verifier.Verifier {
	resolver := dnsresolver.New(
		dnsresolver.WithServer(cfg.DNS.Resolver),
		dnsresolver.WithTimeout(cfg.DNS.QueryTimeout),
	)

	fetcher := verifier.NewPolicyFetcher(
		verifier.WithFetchTimeout(cfg.MTASTS.FetchTimeout),
	)

	return verifier.New(
		cfg.RecordConfig(),
		verifier.WithResolver(resolver),
		verifier.WithFetcher(fetcher),
		verifier.WithPerDomainNameservers(!cfg.DNS.UseLocalNS),
	)
}

// setupService wires the check service with its webhook notifier
func setupService(cfg *config.Config, st store.Store, v *verifier.Verifier) *verifier.Service {
	notifier := webhook.New(
		webhook.WithHTTPClient(&http.Client{Timeout: cfg.Webhook.RequestTimeout}),
	)

	return verifier.NewService(st, v, verifier.WithNotifier(notifier))
}
