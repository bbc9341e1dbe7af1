package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// 248 for a 62 character alphabet
const unbiasedLimit = 256 - 256%len(alphanumeric)

var (
	// last path segment, without query or fragment
	fileNamePattern = regexp.MustCompile(`/([^/?#]+)[^/]*$`)
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// DirectoryName strips every pattern from pageURL, then drops all
// non-alphanumeric characters
func DirectoryName(pageURL string, stripPatterns []string) string {
	cleaned := pageURL
	for _, p := range stripPatterns {
		if p == "" {
			continue
		}
		cleaned = strings.ReplaceAll(cleaned, p, "")
	}
	return nonAlphanumeric.ReplaceAllString(cleaned, "")
}

// FileName derives the output name from the last path segment of videoURL.
// index is the zero-based position of the link and names the fallback.
func FileName(videoURL string, index int) string {
	if m := fileNamePattern.FindStringSubmatch(videoURL); m != nil {
		return m[1]
	}
	return fmt.Sprintf("video_%d.mp4", index+1)
}

// RandomName returns n alphanumeric characters drawn from uuid randomness.
// Bytes at or above the largest multiple of the alphabet size are dropped so
// every character is equally likely.
func RandomName(n int) string {
	var b strings.Builder
	b.Grow(n)
	for b.Len() < n {
		id := uuid.New()
		for i, c := range id {
			// bytes 6 and 8 carry the version and variant bits
			if i == 6 || i == 8 {
				continue
			}
			if b.Len() == n {
				break
			}
			if int(c) >= unbiasedLimit {
				continue
			}
			b.WriteByte(alphanumeric[int(c)%len(alphanumeric)])
		}
	}
	return b.String()
}
