package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/blag/scheduler/internal/calendar"
	"github.com/blag/scheduler/internal/config"
	"github.com/blag/scheduler/internal/google"
	"github.com/blag/scheduler/internal/instrumentation"
	"github.com/blag/scheduler/internal/logging"
	"github.com/blag/scheduler/internal/schedule"
	"github.com/blag/scheduler/internal/server"
	"github.com/blag/scheduler/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		addr           string
		baseURL        string
		logLevel       string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling server",
		Long: `Start the HTTP server that walks guests through the scheduling flow:
Google sign-in, a list of this week's mutually free hours, and booking.

Configuration comes from config.yaml and the environment; flags override
both. The host's Google credentials are required:
  GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET for the OAuth client
  HOST_EMAIL for the calendar being offered
  HOST_REFRESH_TOKEN for querying and writing the host's calendar`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("metrics-enabled") {
				cfg.MetricsEnabled = metricsEnabled
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":5000", "HTTP listen address. Can also use SCHEDULER_ADDR env var.")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL used for the OAuth callback, e.g. https://sched.example.com. Can also use SCHEDULER_BASE_URL env var.")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error. Can also use LOG_LEVEL env var.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger := logging.Setup(cfg.LogLevel)

	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Enabled = instrConfig.Enabled && cfg.MetricsEnabled

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	if cfg.HostRefreshToken == "" {
		return fmt.Errorf("HOST_REFRESH_TOKEN is required to query the host's calendar")
	}

	exchanger := google.NewExchanger(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	})

	client, err := calendar.NewClient(shutdownCtx, hostTokenSource(shutdownCtx, cfg))
	if err != nil {
		return fmt.Errorf("failed to create calendar client: %w", err)
	}

	aggregator := schedule.NewAggregator(
		client,
		schedule.SelfParticipant(cfg.HostEmail),
		schedule.WithDayEndHour(cfg.DayEndHour),
		schedule.WithQueryTimeout(cfg.QueryTimeout()),
		schedule.WithAggregatorLogger(logger),
	)
	booking := schedule.NewBookingService(
		client,
		cfg.HostCalendar(),
		schedule.WithBookingTimeout(cfg.QueryTimeout()),
		schedule.WithBookingLogger(logger),
	)

	manager := session.NewManager(cfg.SessionTimeout(),
		session.WithManagerLogger(logger),
		session.WithManagerMetrics(provider.Metrics()),
	)
	defer manager.Stop()

	coordinator := session.NewCoordinator(exchanger, aggregator, booking,
		session.WithGracePeriod(cfg.GracePeriod()),
		session.WithCoordinatorLogger(logger),
		session.WithCoordinatorMetrics(provider.Metrics()),
	)

	srv := server.NewServer(server.Config{
		Addr:          cfg.Addr,
		BaseURL:       cfg.BaseURL,
		SecureCookies: cfg.IsProduction(),
	}, manager, coordinator,
		server.WithServerLogger(logger),
		server.WithServerMetrics(provider.Metrics()),
	)

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(cfg.MetricsAddr, provider, logger)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down http server: %w", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("metrics server shutdown failed", logging.Err(err))
			}
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("http server stopped with error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// hostTokenSource builds the token source that authenticates availability
// queries and bookings as the host. The refresh token comes from a one-time
// offline consent by the host.
func hostTokenSource(ctx context.Context, cfg *config.Config) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     oauthgoogle.Endpoint,
		Scopes:       []string{calendarapi.CalendarScope},
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.HostRefreshToken})
}
