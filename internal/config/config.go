// Package config resolves process-wide pipeline configuration with
// CLI-argument > environment-variable > built-in-default precedence,
// mirroring the teacher's services/config package shape.
package config

import (
	"os"
	"strconv"
	"strings"
)

// ProcurementType selects which landing page / directory pair a run targets.
type ProcurementType string

const (
	MinorContracts ProcurementType = "minor-contracts"
	PublicTenders  ProcurementType = "public-tenders"
)

// ParseProcurementType maps CLI aliases to a ProcurementType. An unknown
// value silently defaults to PublicTenders, per spec.
func ParseProcurementType(s string) ProcurementType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mc", "min", "minor-contracts":
		return MinorContracts
	case "pt", "pub", "public-tenders":
		return PublicTenders
	default:
		return PublicTenders
	}
}

// ResolvedConfig carries process-wide configuration. Immutable after
// construction by Load.
type ResolvedConfig struct {
	DownloadDirMinorContracts string
	DownloadDirPublicTenders  string
	OutputDirMinorContracts   string
	OutputDirPublicTenders    string

	BatchSize            int
	MaxRetries           int
	RetryInitialDelayMs  int
	RetryMaxDelayMs      int
	ConcurrentDownloads  int
	ReadConcurrency      int
	ConcatBatches        bool
	CleanupEnabled       bool
}

// DownloadDir returns the download directory for a procurement type.
func (c *ResolvedConfig) DownloadDir(t ProcurementType) string {
	if t == MinorContracts {
		return c.DownloadDirMinorContracts
	}
	return c.DownloadDirPublicTenders
}

// OutputDir returns the columnar-output directory for a procurement type.
func (c *ResolvedConfig) OutputDir(t ProcurementType) string {
	if t == MinorContracts {
		return c.OutputDirMinorContracts
	}
	return c.OutputDirPublicTenders
}

const (
	landingURLMinorContracts = "https://contrataciondelestado.es/wps/portal/plataforma/sindicacionContratosMenores"
	landingURLPublicTenders  = "https://contrataciondelestado.es/wps/portal/plataforma/sindicacion"
)

// LandingURL returns the public landing page to scrape for a procurement
// type's ZIP links.
func (c *ResolvedConfig) LandingURL(t ProcurementType) string {
	if t == MinorContracts {
		return landingURLMinorContracts
	}
	return landingURLPublicTenders
}

const (
	defaultBatchSize           = 100
	defaultMaxRetries          = 3
	defaultRetryInitialDelayMs = 1000
	defaultRetryMaxDelayMs     = 10000
	defaultConcurrentDownloads = 4
	defaultReadConcurrency     = 4
)

// Options carries the subset of ResolvedConfig fields an invoker (CLI flags
// in cmd/sppd) can override; zero values fall through to the environment
// and then the built-in default.
type Options struct {
	BatchSize int // 0 means "not set by caller"
	RootDir   string
}

// Load resolves a ResolvedConfig. batchSize precedence is CLI argument (via
// opts.BatchSize) > SPPD_BATCH_SIZE environment variable > built-in default;
// every other knob uses its built-in default, matching spec.md §6.
func Load(opts Options) *ResolvedConfig {
	root := opts.RootDir
	if root == "" {
		root = "."
	}

	batchSize := defaultBatchSize
	if v, ok := envUint("SPPD_BATCH_SIZE"); ok {
		batchSize = v
	}
	if opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}

	return &ResolvedConfig{
		DownloadDirMinorContracts: root + "/downloads/minor-contracts",
		DownloadDirPublicTenders:  root + "/downloads/public-tenders",
		OutputDirMinorContracts:   root + "/parquet/minor-contracts",
		OutputDirPublicTenders:    root + "/parquet/public-tenders",

		BatchSize:           batchSize,
		MaxRetries:          defaultMaxRetries,
		RetryInitialDelayMs: defaultRetryInitialDelayMs,
		RetryMaxDelayMs:     defaultRetryMaxDelayMs,
		ConcurrentDownloads: defaultConcurrentDownloads,
		ReadConcurrency:     defaultReadConcurrency,
		ConcatBatches:       true,
		CleanupEnabled:      true,
	}
}

// envUint parses an unsigned-integer environment variable; unparsable or
// absent values are ignored (ok=false), per spec.md §6.
func envUint(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
