package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cyverse-de/infosquito/config"
	"github.com/cyverse-de/infosquito/internal/rabbitmq"
	"github.com/cyverse-de/infosquito/internal/telemetry"
	"github.com/cyverse-de/infosquito/messaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		configPath string
		amqpURI    string
	)

	rootCmd := &cobra.Command{
		Use:   "infosquito",
		Short: "Message-triggered reindexing notifier",
		Long: `Infosquito listens on a topic exchange for reindex requests and health
checks. Reindex messages trigger the configured external reindexing command;
ping messages are answered with a pong. The subscription loop reconnects
forever and never exits on its own.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if amqpURI != "" {
				cfg.AMQPURI = amqpURI
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	rootCmd.Flags().StringVarP(&amqpURI, "url", "u", "", "AMQP broker URI (overrides configuration)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	topology := rabbitmq.Topology{
		Exchange: rabbitmq.Exchange{
			Name:       cfg.Exchange.Name,
			Durable:    cfg.Exchange.Durable,
			AutoDelete: cfg.Exchange.AutoDelete,
		},
		Queue:    cfg.QueueName,
		Bindings: messaging.DefaultBindings(),
	}

	transport := messaging.NewAMQPTransport(cfg.AMQPURI, topology,
		messaging.WithTransportLogger(logger))

	reindexer := commandReindexer(cfg.ReindexCommand, logger)

	supervisor := messaging.NewSupervisor(transport,
		func(p messaging.Publisher) *messaging.Registry {
			reg := messaging.NewRegistry()
			reindex := messaging.NewReindexHandler(reindexer, cfg.RetryDelay(),
				messaging.WithReindexLogger(logger))
			reg.Register(messaging.RouteReindexAll, reindex)
			reg.Register(messaging.RouteReindexData, reindex)
			reg.Register(messaging.RoutePing, messaging.NewPingHandler(p,
				messaging.WithPingLogger(logger)))
			return reg
		},
		messaging.WithSupervisorLogger(logger),
		messaging.WithSupervisorMetrics(metrics),
	)

	logger.Info("starting subscription loop",
		"queue", cfg.QueueName,
		"exchange", cfg.Exchange.Name,
		"retryInterval", cfg.RetryDelay())

	err := supervisor.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// commandReindexer runs the configured reindex command to completion,
// forwarding its output to the service's stdout and stderr.
func commandReindexer(argv []string, logger *slog.Logger) messaging.Reindexer {
	return messaging.ReindexerFunc(func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		logger.Info("running reindex command", "command", strings.Join(argv, " "))
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("reindex command: %w", err)
		}
		return nil
	})
}
