package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/rizkirmdhn/vidsweep/internal/common/logger"
	"github.com/rizkirmdhn/vidsweep/internal/common/messaging"
	downloader "github.com/rizkirmdhn/vidsweep/internal/downloader/service"
	"github.com/rizkirmdhn/vidsweep/internal/scraper/browser"
	scraper "github.com/rizkirmdhn/vidsweep/internal/scraper/service"
	"github.com/rizkirmdhn/vidsweep/internal/web/handler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errMissingURL = errors.New("missing URL argument")

const missingURLMessage = "Please provide a URL as a command-line argument."

var rootCmd = &cobra.Command{
	Use:   "scraper URL",
	Short: "Download every video on a search results page",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errMissingURL
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		pageURL, err := url.PathUnescape(args[0])
		if err != nil {
			return fmt.Errorf("invalid URL argument: %w", err)
		}
		return run(cmd.Context(), pageURL)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, exitMessage(err))
		stop()
		os.Exit(1)
	}
}

func exitMessage(err error) string {
	if errors.Is(err, errMissingURL) {
		return missingURLMessage
	}
	return err.Error()
}

func run(ctx context.Context, pageURL string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg)

	log.WithFields(logrus.Fields{
		"component": "scraper_main",
		"config":    fmt.Sprintf("%+v", cfg.Scraper),
	}).Debug("Scraper configuration loaded")

	log.WithFields(logrus.Fields{
		"component": "scraper_main",
		"config":    fmt.Sprintf("%+v", cfg.Downloader),
	}).Debug("Downloader configuration loaded")

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

	dl := downloader.NewDownloaderService(&cfg.Downloader, afero.NewOsFs(), nil, log, events)

	launch := func(ctx context.Context) (scraper.Page, error) {
		chrome, err := browser.Launch(ctx, browser.Options{
			Headless:  cfg.Scraper.Headless,
			UserAgent: cfg.Scraper.UserAgent,
			Logf:      log.WithField("component", "browser").Debugf,
		})
		if err != nil {
			return nil, err
		}
		return chrome, nil
	}

	svc := scraper.NewScraperService(&cfg.Scraper, launch, dl, log, events)

	result, err := svc.Run(ctx, pageURL)
	if err != nil {
		log.WithFields(logrus.Fields{
			"component": "scraper_main",
			"run_id":    events.RunID(),
		}).WithError(err).Error("Scraping failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"component":   "scraper_main",
		"run_id":      events.RunID(),
		"destination": result.Destination,
		"aborted":     result.Aborted,
	}).Info("Scraper finished")

	return nil
}
