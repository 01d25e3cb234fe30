package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"company-quiz-service/internal/metrics"
	transport "company-quiz-service/internal/transport/http"
	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	s, err := buildStack(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.startRelay(ctx, log); err != nil {
		return err
	}

	scheduler, err := scheduleReminders(cfg.Reminders.At, s, log)
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.StartAsync()
		defer scheduler.Stop()
	}

	if cfg.Auth.Secret == "" {
		log.Warn("auth.secret is empty, every token will be rejected")
	}
	router := transport.NewRouter(transport.RouterDeps{
		Handler: transport.NewHandler(s.quizzes, s.notifications, log.Named("http")),
		WS: transport.NewWSHandler(s.notifications, s.hub, log.Named("ws"), transport.WSOptions{
			RateLimit:  cfg.Notifications.RateLimit,
			RateBurst:  cfg.Notifications.RateBurst,
			SendBuffer: cfg.Notifications.SendBuffered,
		}),
		Auth:           transport.NewAuthenticator(cfg.Auth.Secret),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// scheduleReminders registers the daily availability reminder at "HH:MM" UTC.
// An empty time disables it.
func scheduleReminders(at string, s *stack, log *zap.Logger) (*gocron.Scheduler, error) {
	if at == "" {
		return nil, nil
	}
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(1).Day().At(at).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sent, err := s.reminders.Run(ctx)
		if err != nil {
			log.Error("reminder run failed", zap.Error(err))
			return
		}
		log.Info("reminders sent", zap.Int("count", sent))
	})
	if err != nil {
		return nil, err
	}
	return scheduler, nil
}
