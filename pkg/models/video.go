package models

import (
	"fmt"
	"time"
)

// VideoLink is a video source URL in extraction order
type VideoLink struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// DownloadProgressState holds the counters of one download loop
type DownloadProgressState struct {
	Total           int           `json:"total"`
	Processed       int           `json:"processed"`
	Downloaded      int           `json:"downloaded"`
	Skipped         int           `json:"skipped"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	LargestFileSize int64         `json:"largest_file_size"`
	DownloadTime    time.Duration `json:"download_time"`
}

// RecordDownload accounts for one finished download
func (p *DownloadProgressState) RecordDownload(size int64, elapsed time.Duration) {
	p.Downloaded++
	p.BytesDownloaded += size
	p.DownloadTime += elapsed
	if size > p.LargestFileSize {
		p.LargestFileSize = size
	}
}

// RecordSkip accounts for one link skipped because its file already exists
func (p *DownloadProgressState) RecordSkip() {
	p.Skipped++
}

// MarkProcessed advances the position in the link list, whatever the outcome
func (p *DownloadProgressState) MarkProcessed() {
	p.Processed++
}

// PercentComplete is the share of links processed so far
func (p DownloadProgressState) PercentComplete() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Processed) / float64(p.Total) * 100
}

// AverageDownloadTime is the mean duration of the downloads recorded so far
func (p DownloadProgressState) AverageDownloadTime() time.Duration {
	if p.Downloaded == 0 {
		return 0
	}
	return p.DownloadTime / time.Duration(p.Downloaded)
}

// EstimateRemaining multiplies the average download time by the links left.
// ok is false while there is no timing data.
func (p DownloadProgressState) EstimateRemaining() (remaining time.Duration, ok bool) {
	avg := p.AverageDownloadTime()
	if avg <= 0 {
		return 0, false
	}
	left := p.Total - p.Processed
	if left < 0 {
		left = 0
	}
	return avg * time.Duration(left), true
}

// FormatRemaining renders an estimate as "M minutes and S seconds", or N/A
func FormatRemaining(d time.Duration, ok bool) string {
	if !ok {
		return "N/A"
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d minutes and %d seconds", secs/60, secs%60)
}

// RunResult is the outcome of one scrape run
type RunResult struct {
	URL         string                `json:"url"`
	Destination string                `json:"destination,omitempty"`
	Found       int                   `json:"found"`
	Aborted     bool                  `json:"aborted"`
	Progress    DownloadProgressState `json:"progress"`
}
