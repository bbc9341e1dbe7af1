package models

import "time"

// Event types
const (
	EventDedupDeleted     = "dedup_deleted"
	EventDedupComplete    = "dedup_complete"
	EventScrapeStarted    = "scrape_started"
	EventScrapeAborted    = "scrape_aborted"
	EventScrapeComplete   = "scrape_complete"
	EventDownloadSkipped  = "download_skipped"
	EventDownloadComplete = "download_complete"
)

// Event is a notification published while a tool runs
type Event struct {
	Type     string                 `json:"type"`
	RunID    string                 `json:"run_id"`
	Time     time.Time              `json:"time"`
	Path     string                 `json:"path,omitempty"`
	URL      string                 `json:"url,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Progress *DownloadProgressState `json:"progress,omitempty"`
}
