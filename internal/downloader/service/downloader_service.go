package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/rizkirmdhn/vidsweep/internal/common/logger"
	"github.com/rizkirmdhn/vidsweep/internal/common/messaging"
	"github.com/rizkirmdhn/vidsweep/pkg/models"
	"github.com/rizkirmdhn/vidsweep/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DownloaderService downloads extracted video links one at a time
type DownloaderService struct {
	config     *config.DownloaderConfig
	fs         afero.Fs
	httpClient *http.Client
	log        *logger.ComponentLogger
	events     *messaging.Publisher
	randomName func(n int) string
}

// NewDownloaderService creates a new DownloaderService. A nil httpClient
// gets a client with the configured timeout (none by default).
func NewDownloaderService(cfg *config.DownloaderConfig, fs afero.Fs, httpClient *http.Client, log *logrus.Logger, events *messaging.Publisher) *DownloaderService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &DownloaderService{
		config:     cfg,
		fs:         fs,
		httpClient: httpClient,
		log:        logger.NewComponentLogger(log, "downloader").With("run_id", events.RunID()),
		events:     events,
		randomName: RandomName,
	}
}

// PrepareDestination creates the directory derived from pageURL under the
// output root and returns its path
func (s *DownloaderService) PrepareDestination(pageURL string) (string, error) {
	dir := filepath.Join(s.config.OutputDir, DirectoryName(pageURL, s.config.StripPatterns))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

// DownloadAll processes links in order. A link is skipped when a file with
// its derived name already exists anywhere under dest; placeholder names get
// a random name instead and are never skipped. The first download error
// stops the loop and is returned.
func (s *DownloaderService) DownloadAll(ctx context.Context, dest string, links []models.VideoLink, progress *models.DownloadProgressState) error {
	progress.Total = len(links)

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}

		name, placeholder := s.resolveFileName(link)

		if !placeholder {
			exists, err := utils.FileExistsInTree(s.fs, dest, name)
			if err != nil {
				return fmt.Errorf("failed to search %s for %s: %w", dest, name, err)
			}
			if exists {
				progress.RecordSkip()
				progress.MarkProcessed()
				s.log.WithFields(logrus.Fields{
					"file": name,
					"url":  link.URL,
				}).Infof("Skipped download for existing file (%d skipped): %s", progress.Skipped, name)
				s.publishProgress(config.RoutingDownloadSkipped, models.EventDownloadSkipped, link, progress)
				s.logPercent(progress)
				continue
			}
		}

		s.log.WithField("url", link.URL).Infof("Downloading video %d/%d", i+1, len(links))

		start := time.Now()
		size, err := s.downloadFile(ctx, link.URL, filepath.Join(dest, name))
		if err != nil {
			return err
		}
		progress.RecordDownload(size, time.Since(start))
		progress.MarkProcessed()

		if progress.Downloaded%s.config.EstimateEvery == 0 {
			remaining, ok := progress.EstimateRemaining()
			s.log.Entry().Infof("Approximate Time Remaining: %s", models.FormatRemaining(remaining, ok))
		}

		s.log.WithFields(logrus.Fields{
			"file":  name,
			"bytes": size,
		}).Infof("Downloaded %s", name)
		s.publishProgress(config.RoutingLogDownloader, models.EventDownloadComplete, link, progress)

		if i < len(links)-1 {
			if err := sleep(ctx, s.config.Delay); err != nil {
				return err
			}
		}

		s.logPercent(progress)
	}

	s.log.WithFields(logrus.Fields{
		"downloaded":        progress.Downloaded,
		"skipped":           progress.Skipped,
		"bytes_downloaded":  progress.BytesDownloaded,
		"largest_file_size": progress.LargestFileSize,
	}).Info("All video downloads completed")

	return nil
}

// resolveFileName reports whether the derived name was a placeholder that
// has been replaced by a random one
func (s *DownloaderService) resolveFileName(link models.VideoLink) (string, bool) {
	name := FileName(link.URL, link.Index)
	for _, p := range s.config.PlaceholderNames {
		if name == p {
			return s.randomName(s.config.RandomNameLength) + s.config.RandomNameExt, true
		}
	}
	return name, false
}

// downloadFile streams url into path and returns the number of bytes written.
// A partially written file is removed.
func (s *DownloaderService) downloadFile(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("error creating request for %s: %w", url, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error downloading file %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("error downloading file %s: unexpected status %s", url, resp.Status)
	}

	out, err := s.fs.Create(path)
	if err != nil {
		return 0, fmt.Errorf("error creating file %s: %w", path, err)
	}

	n, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := utils.RemoveIfExists(s.fs, path); rmErr != nil {
			s.log.WithField("file", path).WithError(rmErr).Warn("Failed to remove partial download")
		}
		return n, fmt.Errorf("error writing to file %s: %w", path, err)
	}

	return n, nil
}

func (s *DownloaderService) logPercent(progress *models.DownloadProgressState) {
	s.log.WithFields(logrus.Fields{
		"processed": progress.Processed,
		"total":     progress.Total,
	}).Infof("Approximately %.2f%% completed", progress.PercentComplete())
}

func (s *DownloaderService) publishProgress(routingKey, eventType string, link models.VideoLink, progress *models.DownloadProgressState) {
	snapshot := *progress
	s.events.Publish(routingKey, models.Event{
		Type:     eventType,
		URL:      link.URL,
		Progress: &snapshot,
	})
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
