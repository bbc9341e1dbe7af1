package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/rizkirmdhn/vidsweep/internal/common/logger"
	"github.com/rizkirmdhn/vidsweep/internal/common/messaging"
	"github.com/rizkirmdhn/vidsweep/pkg/models"
	"github.com/sirupsen/logrus"
)

// ErrNoVideos is returned when no video element appeared within the retry bound
var ErrNoVideos = errors.New("timeout waiting for video selector")

// Page is the browser tab a run drives
type Page interface {
	Navigate(ctx context.Context, url string) error
	ScrollBy(ctx context.Context, distance int) (scrollHeight int, err error)
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Snapshot(ctx context.Context) (html, location string, err error)
	Close() error
}

// Launcher opens a fresh browser tab
type Launcher func(ctx context.Context) (Page, error)

// VideoDownloader stores the extracted videos
type VideoDownloader interface {
	PrepareDestination(pageURL string) (string, error)
	DownloadAll(ctx context.Context, dest string, links []models.VideoLink, progress *models.DownloadProgressState) error
}

// ScraperService is the struct that holds the scraper service
type ScraperService struct {
	config     *config.ScraperConfig
	launch     Launcher
	downloader VideoDownloader
	log        *logger.ComponentLogger
	events     *messaging.Publisher
}

// NewScraperService creates a new ScraperService
func NewScraperService(cfg *config.ScraperConfig, launch Launcher, downloader VideoDownloader, log *logrus.Logger, events *messaging.Publisher) *ScraperService {
	return &ScraperService{
		config:     cfg,
		launch:     launch,
		downloader: downloader,
		log:        logger.NewComponentLogger(log, "scraper").With("run_id", events.RunID()),
		events:     events,
	}
}

// Run scrapes pageURL and downloads every video found on it. When no video
// element shows up within the retry bound the run ends early with Aborted
// set and no error. The browser is closed on every path, after the elapsed
// time logger has stopped.
func (s *ScraperService) Run(ctx context.Context, pageURL string) (*models.RunResult, error) {
	start := time.Now()
	result := &models.RunResult{URL: pageURL}

	s.log.WithField("url", pageURL).Info("Starting scraping process")
	s.events.Publish(config.RoutingLogScraper, models.Event{Type: models.EventScrapeStarted, URL: pageURL})

	page, err := s.launch(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.log.WithError(err).Warn("Error while closing browser")
		}
	}()

	stopElapsed := s.startElapsedLogger(ctx, start)
	defer stopElapsed()

	if err := page.Navigate(ctx, pageURL); err != nil {
		return result, err
	}

	if err := s.autoScroll(ctx, page); err != nil {
		return result, err
	}
	s.log.Entry().Infof("Scrolled to the bottom of the page in %.2f seconds", time.Since(start).Seconds())

	if err := s.waitForVideos(ctx, page); err != nil {
		if errors.Is(err, ErrNoVideos) {
			s.log.Entry().Error("Timeout waiting for video selector. Exiting script.")
			s.events.Publish(config.RoutingLogScraper, models.Event{
				Type:  models.EventScrapeAborted,
				URL:   pageURL,
				Error: err.Error(),
			})
			result.Aborted = true
			return result, nil
		}
		return result, err
	}

	html, location, err := page.Snapshot(ctx)
	if err != nil {
		return result, err
	}
	links, err := ExtractVideoLinks(html, location, s.config.VideoSelector)
	if err != nil {
		return result, err
	}
	result.Found = len(links)

	dest, err := s.downloader.PrepareDestination(pageURL)
	if err != nil {
		return result, err
	}
	result.Destination = dest

	s.log.WithField("destination", dest).Infof("Found %d videos on the page", len(links))

	err = s.downloader.DownloadAll(ctx, dest, links, &result.Progress)
	if err != nil {
		s.events.Publish(config.RoutingLogScraper, models.Event{
			Type:  models.EventScrapeComplete,
			URL:   pageURL,
			Error: err.Error(),
		})
		return result, err
	}

	snapshot := result.Progress
	s.events.Publish(config.RoutingLogScraper, models.Event{
		Type:     models.EventScrapeComplete,
		URL:      pageURL,
		Progress: &snapshot,
	})
	s.log.WithFields(logrus.Fields{
		"found":      result.Found,
		"downloaded": result.Progress.Downloaded,
		"skipped":    result.Progress.Skipped,
		"elapsed":    time.Since(start).Round(time.Second).String(),
	}).Info("Scraping complete")

	return result, nil
}

// autoScroll scrolls by a fixed distance on every tick until the distance
// covered reaches the scroll height seen on that tick. The page may keep
// growing, so this is a heuristic end of page.
func (s *ScraperService) autoScroll(ctx context.Context, page Page) error {
	ticker := time.NewTicker(s.config.ScrollInterval)
	defer ticker.Stop()

	total := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		height, err := page.ScrollBy(ctx, s.config.ScrollDistance)
		if err != nil {
			return err
		}
		total += s.config.ScrollDistance
		if total >= height {
			s.log.WithFields(logrus.Fields{
				"scrolled":      total,
				"scroll_height": height,
			}).Debug("Reached the bottom of the page")
			return nil
		}
	}
}

// waitForVideos waits for the video selector, retrying up to the configured
// number of attempts
func (s *ScraperService) waitForVideos(ctx context.Context, page Page) error {
	retries := s.config.SelectorRetries
	for attempt := 1; attempt <= retries; attempt++ {
		err := page.WaitForSelector(ctx, s.config.VideoSelector, s.config.SelectorTimeout)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.WithError(err).Infof("Retry %d/%d - Waiting for video selector...", attempt, retries)
	}
	return ErrNoVideos
}

// startElapsedLogger logs the total running time on every interval until
// the returned stop function is called. stop waits for the logger to exit.
// A non-positive interval disables the logger.
func (s *ScraperService) startElapsedLogger(ctx context.Context, start time.Time) (stop func()) {
	if s.config.ElapsedLogInterval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.config.ElapsedLogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.log.Entry().Infof("Total time running: %d seconds...", int(time.Since(start).Seconds()))
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
