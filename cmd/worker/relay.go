package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftlab/newsletter-service/internal/config"
	"github.com/driftlab/newsletter-service/internal/db"
	"github.com/driftlab/newsletter-service/internal/kafka"
	"github.com/driftlab/newsletter-service/internal/logger"
	"github.com/driftlab/newsletter-service/internal/metrics"
	"github.com/driftlab/newsletter-service/internal/repository"
	"github.com/driftlab/newsletter-service/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run outbox relay (publishes subscription events to Kafka)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		metrics.MustRegister(prometheus.DefaultRegisterer)

		dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		pub := kafka.NewPublisherFromConfig(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		defer pub.Close()

		relay := worker.NewRelay(repository.NewOutboxRepository(dbx), pub)
		if cfg.Outbox.PollInterval > 0 {
			relay.PollInterval = cfg.Outbox.PollInterval
		}
		if cfg.Outbox.BatchSize > 0 {
			relay.BatchSize = cfg.Outbox.BatchSize
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Log.Info("outbox relay started",
			zap.Duration("poll_interval", relay.PollInterval),
			zap.Int("batch_size", relay.BatchSize),
		)

		return relay.Run(ctx)
	},
}
