package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/rizkirmdhn/vidsweep/internal/common/logger"
	"github.com/rizkirmdhn/vidsweep/internal/common/messaging"
	"github.com/rizkirmdhn/vidsweep/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DedupService removes files whose content duplicates an earlier file in the
// same directory
type DedupService struct {
	fs     afero.Fs
	log    *logger.ComponentLogger
	events *messaging.Publisher
}

// NewDedupService creates a new DedupService
func NewDedupService(fs afero.Fs, log *logrus.Logger, events *messaging.Publisher) *DedupService {
	return &DedupService{
		fs:     fs,
		log:    logger.NewComponentLogger(log, "dedup").With("run_id", events.RunID()),
		events: events,
	}
}

// Run scans the direct children of dir in listing order. The first regular
// file seen for each content hash is kept; later files with the same hash
// are deleted immediately. Subdirectories are not entered. Any I/O error
// stops the run.
func (s *DedupService) Run(ctx context.Context, dir string) (*models.DedupResult, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	result := &models.DedupResult{Directory: dir}
	seen := make(map[string]models.FileHashRecord)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		path := filepath.Join(dir, entry.Name())

		// Stat follows symlinks, so a link to a regular file counts as one
		info, err := s.fs.Stat(path)
		if err != nil {
			return result, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		result.Scanned++

		hash, err := HashFile(s.fs, path)
		if err != nil {
			return result, err
		}

		if original, ok := seen[hash]; ok {
			if err := s.fs.Remove(path); err != nil {
				return result, fmt.Errorf("failed to delete %s: %w", path, err)
			}
			result.DeletedPaths = append(result.DeletedPaths, path)

			s.log.WithFields(logrus.Fields{
				"path":     path,
				"original": original.Path,
				"hash":     hash,
			}).Infof("Deleted duplicate file: %s", path)

			s.events.Publish(config.RoutingDedupDeleted, models.Event{
				Type: models.EventDedupDeleted,
				Path: path,
			})
			continue
		}

		record := models.FileHashRecord{Hash: hash, Path: path}
		seen[hash] = record
		result.Kept = append(result.Kept, record)

		s.log.WithFields(logrus.Fields{
			"path": path,
			"hash": hash,
		}).Debug("Registered file")
	}

	s.log.WithFields(logrus.Fields{
		"directory": dir,
		"scanned":   result.Scanned,
		"kept":      len(result.Kept),
		"deleted":   result.Deleted(),
	}).Info("Dedup complete")

	s.events.Publish(config.RoutingDedupComplete, models.Event{
		Type: models.EventDedupComplete,
		Path: dir,
	})

	return result, nil
}

// HashFile returns the lowercase hex SHA-256 digest of the file content
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
