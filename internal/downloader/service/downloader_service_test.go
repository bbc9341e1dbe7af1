package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/rizkirmdhn/vidsweep/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type videoServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newVideoServer(t *testing.T) *videoServer {
	t.Helper()
	vs := &videoServer{hits: make(map[string]int)}
	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vs.mu.Lock()
		vs.hits[r.URL.Path]++
		vs.mu.Unlock()
		if strings.HasPrefix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "content of %s", r.URL.Path)
	}))
	t.Cleanup(vs.Close)
	return vs
}

func (vs *videoServer) requests() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	total := 0
	for _, n := range vs.hits {
		total += n
	}
	return total
}

func testConfig() *config.DownloaderConfig {
	cfg := config.Default().Downloader
	cfg.OutputDir = "/out"
	cfg.Delay = 0
	return &cfg
}

func links(urls ...string) []models.VideoLink {
	out := make([]models.VideoLink, len(urls))
	for i, u := range urls {
		out[i] = models.VideoLink{Index: i, URL: u}
	}
	return out
}

func TestPrepareDestination_IsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	log, _ := test.NewNullLogger()
	svc := NewDownloaderService(testConfig(), fs, nil, log, nil)

	dir, err := svc.PrepareDestination("https://www.pexels.com/search/videos/beach/?orientation=portrait")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "beach"), dir)

	again, err := svc.PrepareDestination("https://www.pexels.com/search/videos/beach/?orientation=portrait")
	require.NoError(t, err)
	assert.Equal(t, dir, again)

	isDir, err := afero.IsDir(fs, dir)
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestDownloadAll_DuplicateURLIsSkippedAndPlaceholderRenamed(t *testing.T) {
	srv := newVideoServer(t)
	fs := afero.NewMemMapFs()
	log, hook := test.NewNullLogger()
	svc := NewDownloaderService(testConfig(), fs, srv.Client(), log, nil)

	dest, err := svc.PrepareDestination("https://www.pexels.com/search/videos/cats")
	require.NoError(t, err)

	progress := &models.DownloadProgressState{}
	err = svc.DownloadAll(context.Background(), dest, links(
		srv.URL+"/videos/v1.mp4",
		srv.URL+"/external/file",
		srv.URL+"/videos/v1.mp4",
	), progress)
	require.NoError(t, err)

	assert.Equal(t, 2, progress.Downloaded)
	assert.Equal(t, 1, progress.Skipped)
	assert.Equal(t, 3, progress.Processed)
	assert.Equal(t, 2, srv.requests())

	infos, err := afero.ReadDir(fs, dest)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	assert.Contains(t, names, "v1.mp4")
	assert.NotContains(t, names, "file")
	assert.NotContains(t, names, "file.mp4")
	for _, n := range names {
		if n != "v1.mp4" {
			assert.Regexp(t, `^[a-zA-Z0-9]{12}\.mp4$`, n)
		}
	}

	content, err := afero.ReadFile(fs, filepath.Join(dest, "v1.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "content of /videos/v1.mp4", string(content))

	var skipped bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Skipped download for existing file (1 skipped): v1.mp4" {
			skipped = true
		}
	}
	assert.True(t, skipped)
}

func TestDownloadAll_ExistingFileInSubdirectoryIsSkippedWithoutRequest(t *testing.T) {
	srv := newVideoServer(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/cats/archive/2023/v7.mp4", []byte("old, different content"), 0o644))

	log, _ := test.NewNullLogger()
	svc := NewDownloaderService(testConfig(), fs, srv.Client(), log, nil)

	progress := &models.DownloadProgressState{}
	err := svc.DownloadAll(context.Background(), "/out/cats", links(srv.URL+"/cdn/v7.mp4?quality=hd"), progress)
	require.NoError(t, err)

	assert.Equal(t, 1, progress.Skipped)
	assert.Zero(t, progress.Downloaded)
	assert.Zero(t, srv.requests())
}

func TestDownloadAll_PlaceholderIsNeverSkipped(t *testing.T) {
	srv := newVideoServer(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/cats/file.mp4", []byte("x"), 0o644))

	log, _ := test.NewNullLogger()
	svc := NewDownloaderService(testConfig(), fs, srv.Client(), log, nil)
	svc.randomName = func(n int) string { return strings.Repeat("a", n) }

	progress := &models.DownloadProgressState{}
	err := svc.DownloadAll(context.Background(), "/out/cats", links(srv.URL+"/x/file.mp4"), progress)
	require.NoError(t, err)

	assert.Equal(t, 1, progress.Downloaded)
	exists, err := afero.Exists(fs, "/out/cats/aaaaaaaaaaaa.mp4")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDownloadAll_FailureStopsRemainingDownloads(t *testing.T) {
	srv := newVideoServer(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out/cats", 0o755))
	log, _ := test.NewNullLogger()
	svc := NewDownloaderService(testConfig(), fs, srv.Client(), log, nil)

	progress := &models.DownloadProgressState{}
	err := svc.DownloadAll(context.Background(), "/out/cats", links(
		srv.URL+"/a.mp4",
		srv.URL+"/missing/b.mp4",
		srv.URL+"/c.mp4",
	), progress)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")

	assert.Equal(t, 1, progress.Downloaded)
	assert.Equal(t, 2, srv.requests())

	exists, _ := afero.Exists(fs, "/out/cats/b.mp4")
	assert.False(t, exists)
	exists, _ = afero.Exists(fs, "/out/cats/c.mp4")
	assert.False(t, exists)
}

func TestDownloadAll_CreateFailureAbortsRun(t *testing.T) {
	srv := newVideoServer(t)
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/out/cats", 0o755))
	log, _ := test.NewNullLogger()
	svc := NewDownloaderService(testConfig(), afero.NewReadOnlyFs(base), srv.Client(), log, nil)

	err := svc.DownloadAll(context.Background(), "/out/cats", links(srv.URL+"/a.mp4"), &models.DownloadProgressState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating file")
}

func TestDownloadAll_EstimatesEveryTenthDownload(t *testing.T) {
	srv := newVideoServer(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out/x", 0o755))
	log, hook := test.NewNullLogger()
	svc := NewDownloaderService(testConfig(), fs, srv.Client(), log, nil)

	var urls []string
	for i := 0; i < 21; i++ {
		urls = append(urls, fmt.Sprintf("%s/clip_%02d.mp4", srv.URL, i))
	}

	progress := &models.DownloadProgressState{}
	require.NoError(t, svc.DownloadAll(context.Background(), "/out/x", links(urls...), progress))

	var estimates, percents int
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Approximate Time Remaining: ") {
			estimates++
			assert.NotEqual(t, "Approximate Time Remaining: N/A", e.Message)
		}
		if strings.HasPrefix(e.Message, "Approximately ") && strings.HasSuffix(e.Message, "% completed") {
			percents++
		}
	}
	assert.Equal(t, 2, estimates)
	assert.Equal(t, 21, percents)
	assert.Equal(t, "Approximately 100.00% completed", lastPercent(hook.AllEntries()))
	assert.Equal(t, int64(len("content of /clip_00.mp4")), progress.LargestFileSize)
}

func TestDownloadAll_DelayIsCancellable(t *testing.T) {
	srv := newVideoServer(t)
	cfg := testConfig()
	cfg.Delay = time.Hour

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out/x", 0o755))
	log, _ := test.NewNullLogger()
	svc := NewDownloaderService(cfg, fs, srv.Client(), log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	progress := &models.DownloadProgressState{}
	err := svc.DownloadAll(ctx, "/out/x", links(srv.URL+"/a.mp4", srv.URL+"/b.mp4"), progress)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, progress.Downloaded)
}

func lastPercent(entries []*logrus.Entry) string {
	msg := ""
	for _, e := range entries {
		if strings.HasSuffix(e.Message, "% completed") {
			msg = e.Message
		}
	}
	return msg
}
