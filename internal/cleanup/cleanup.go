// Package cleanup implements the best-effort post-run removal of a
// period's downloaded archive and extracted directory.
package cleanup

import (
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"sppd/internal/config"
)

// Cleaner removes a period's {period}.zip and {period}/ directory from the
// download directory once it has been parsed and written.
type Cleaner struct {
	Log *zap.Logger
}

// NewCleaner returns a Cleaner; a nil logger is replaced with a no-op one.
func NewCleaner(log *zap.Logger) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{Log: log}
}

// Run removes the zip and extracted directory for every period, in sorted
// order. Individual failures are logged and counted, never returned: this
// stage can never fail the run. When cfg.CleanupEnabled is false, Run is a
// no-op and returns 0.
func (c *Cleaner) Run(periods []string, procType config.ProcurementType, cfg *config.ResolvedConfig) int {
	if !cfg.CleanupEnabled {
		return 0
	}

	sorted := make([]string, len(periods))
	copy(sorted, periods)
	sort.Strings(sorted)

	failures := 0
	downloadDir := cfg.DownloadDir(procType)
	for _, period := range sorted {
		zipPath := filepath.Join(downloadDir, period+".zip")
		if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
			c.Log.Warn("cleanup: failed to remove archive", zap.String("path", zipPath), zap.Error(err))
			failures++
		}

		dirPath := filepath.Join(downloadDir, period)
		if err := os.RemoveAll(dirPath); err != nil {
			c.Log.Warn("cleanup: failed to remove extracted directory", zap.String("path", dirPath), zap.Error(err))
			failures++
		}
	}
	return failures
}
