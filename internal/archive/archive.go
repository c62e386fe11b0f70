// Package archive expands downloaded period ZIPs into sibling directories.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"sppd/internal/config"
	"sppd/internal/errs"
)

// Extractor expands each {period}.zip in a download directory into a
// {period}/ sibling directory, skipping directories that already exist.
type Extractor struct{}

// NewExtractor returns a ready-to-use Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Run extracts every {period}.zip named by periods within
// cfg.DownloadDir(procType), dispatching each extraction onto its own
// goroutine bounded by a semaphore (the same worker-pool shape as the
// download scheduler) so the blocking zip.OpenReader/io.Copy calls never
// stall the caller. A single malformed archive is recorded but does not
// stop the rest; if any failed, an aggregated *errs.IoError is returned
// once all periods have been attempted.
func (e *Extractor) Run(periods []string, procType config.ProcurementType, cfg *config.ResolvedConfig) error {
	dir := cfg.DownloadDir(procType)

	sorted := make([]string, len(periods))
	copy(sorted, periods)
	sort.Strings(sorted)

	workers := cfg.ConcurrentDownloads
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	ctx := context.Background()
	errsByPeriod := make([]error, len(sorted))
	var wg sync.WaitGroup

	for i, period := range sorted {
		if err := sem.Acquire(ctx, 1); err != nil {
			errsByPeriod[i] = err
			continue
		}
		wg.Add(1)
		go func(i int, period string) {
			defer wg.Done()
			defer sem.Release(1)
			errsByPeriod[i] = e.extractOne(dir, period)
		}(i, period)
	}
	wg.Wait()

	var failed []string
	for i, err := range errsByPeriod {
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", sorted[i], err))
		}
	}
	if len(failed) > 0 {
		return &errs.IoError{Op: "extract", Err: fmt.Errorf("%d archive(s) failed: %s", len(failed), strings.Join(failed, "; "))}
	}
	return nil
}

func (e *Extractor) extractOne(dir, period string) error {
	destDir := filepath.Join(dir, period)
	if _, err := os.Stat(destDir); err == nil {
		return nil
	}

	zipPath := filepath.Join(dir, period+".zip")
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return &errs.ParseError{Source: zipPath, Err: err}
		}
		return &errs.IoError{Op: "open " + zipPath, Err: err}
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &errs.IoError{Op: "mkdir " + destDir, Err: err}
	}

	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if err := extractMember(destDir, f); err != nil {
			return err
		}
	}
	return nil
}

func extractMember(destDir string, f *zip.File) error {
	target := filepath.Join(destDir, filepath.FromSlash(f.Name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &errs.IoError{Op: "mkdir " + filepath.Dir(target), Err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return &errs.IoError{Op: "open member " + f.Name, Err: err}
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return &errs.IoError{Op: "create " + target, Err: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return &errs.IoError{Op: "write " + target, Err: err}
	}
	return nil
}
