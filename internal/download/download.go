// Package download implements the bounded-concurrency ZIP downloader: one
// task per period URL, a weighted semaphore capping in-flight requests,
// classified retry with exponential backoff, and atomic .part-then-rename
// placement.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"sppd/internal/config"
	"sppd/internal/errs"
)

// Scheduler downloads period ZIPs into a procurement type's download
// directory, bounded by config.ConcurrentDownloads in-flight requests.
type Scheduler struct {
	HTTP *http.Client
	Log  *zap.Logger
}

// NewScheduler returns a Scheduler with a download-sized HTTP timeout.
func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		HTTP: &http.Client{Timeout: 10 * time.Minute},
		Log:  log,
	}
}

type outcome struct {
	period string
	err    error
}

// Run downloads every link in links into cfg.DownloadDir(procType), skipping
// periods whose final file already exists. It returns an aggregated
// *errs.NetworkError if any task failed; one failing file never aborts its
// siblings.
func (s *Scheduler) Run(ctx context.Context, links map[string]string, procType config.ProcurementType, cfg *config.ResolvedConfig) error {
	dir := cfg.DownloadDir(procType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errs.IoError{Op: "mkdir " + dir, Err: err}
	}

	periods := make([]string, 0, len(links))
	for p := range links {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	sem := semaphore.NewWeighted(int64(cfg.ConcurrentDownloads))
	outcomes := make([]outcome, len(periods))
	var wg sync.WaitGroup

	for i, period := range periods {
		finalPath := filepath.Join(dir, period+".zip")
		if _, err := os.Stat(finalPath); err == nil {
			outcomes[i] = outcome{period: period}
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = outcome{period: period, err: err}
			continue
		}

		wg.Add(1)
		go func(i int, period, url string) {
			defer wg.Done()
			defer sem.Release(1)
			err := s.downloadOne(ctx, url, finalPath, cfg)
			outcomes[i] = outcome{period: period, err: err}
			if err != nil {
				s.Log.Warn("download failed", zap.String("period", period), zap.Error(err))
			} else {
				s.Log.Info("download complete", zap.String("period", period))
			}
		}(i, period, links[period])
	}
	wg.Wait()

	var failed []string
	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", o.period, o.err))
		}
	}
	s.Log.Info("download stage finished",
		zap.Int("ok", len(periods)-len(failed)),
		zap.Int("failed", len(failed)),
	)
	if len(failed) > 0 {
		return &errs.NetworkError{URL: dir, Err: fmt.Errorf("%d file(s) failed: %s", len(failed), strings.Join(failed, "; "))}
	}
	return nil
}

// downloadOne performs the per-file protocol: stale .part removal, classified
// retry with exponential backoff, streamed write, atomic rename.
func (s *Scheduler) downloadOne(ctx context.Context, url, finalPath string, cfg *config.ResolvedConfig) error {
	tmpPath := finalPath + ".part"
	attempts := cfg.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt-1, cfg.RetryInitialDelayMs, cfg.RetryMaxDelayMs)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		_ = os.Remove(tmpPath)
		err := s.attempt(ctx, url, tmpPath)
		if err == nil {
			return os.Rename(tmpPath, finalPath)
		}
		lastErr = err

		netErr, ok := err.(*errs.NetworkError)
		if !ok || !netErr.Retryable() {
			return err
		}
	}
	return lastErr
}

// backoffDelay returns min(initialMs*2^n, maxMs) as a duration, n 0-indexed.
func backoffDelay(n, initialMs, maxMs int) time.Duration {
	ms := initialMs << uint(n)
	if ms > maxMs || ms <= 0 {
		ms = maxMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *Scheduler) attempt(ctx context.Context, url, tmpPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &errs.UrlError{Raw: url, Err: err}
	}

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return &errs.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &errs.NetworkError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	f, err := os.Create(tmpPath)
	if err != nil {
		return &errs.IoError{Op: "create " + tmpPath, Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return &errs.IoError{Op: "write " + tmpPath, Err: err}
	}
	return nil
}
