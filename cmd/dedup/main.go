package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/rizkirmdhn/vidsweep/internal/common/logger"
	"github.com/rizkirmdhn/vidsweep/internal/common/messaging"
	"github.com/rizkirmdhn/vidsweep/internal/dedup/service"
	"github.com/rizkirmdhn/vidsweep/internal/web/handler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "dedup",
	Short:         "Delete files with identical content in the configured directory",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg)

	log.WithFields(logrus.Fields{
		"component": "dedup_main",
		"config":    fmt.Sprintf("%+v", cfg.Dedup),
	}).Debug("Dedup configuration loaded")

	msgClient, err := messaging.NewClient(&cfg.RabbitMq, log)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer msgClient.Close()

	panelCtx, stopPanel := context.WithCancel(ctx)
	panel, err := handler.StartPanel(panelCtx, cfg, log)
	if err != nil {
		stopPanel()
		return err
	}
	defer func() {
		stopPanel()
		if panel != nil {
			panel.Wait()
		}
	}()
	if panel != nil {
		msgClient = messaging.MultiClient{msgClient, panel}
	}

	events := messaging.NewPublisher(msgClient, cfg.RabbitMq.Exchange, uuid.New().String(), log)

	result, err := service.NewDedupService(afero.NewOsFs(), log, events).Run(ctx, cfg.Dedup.Directory)
	if err != nil {
		log.WithFields(logrus.Fields{
			"component": "dedup_main",
			"directory": cfg.Dedup.Directory,
		}).WithError(err).Error("Dedup failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"component": "dedup_main",
		"scanned":   result.Scanned,
		"deleted":   result.Deleted(),
	}).Info("Dedup finished")

	return nil
}
