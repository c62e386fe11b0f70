// Command sppd ingests Spanish public-procurement Atom feeds into
// per-period Parquet files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"sppd/internal/config"
	"sppd/internal/errs"
	"sppd/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "download" {
		fmt.Fprintln(os.Stderr, "usage: sppd download --type {minor-contracts|public-tenders} [--start YYYY|YYYYMM] [--end YYYY|YYYYMM]")
		os.Exit(2)
	}

	fs := flag.NewFlagSet("download", flag.ExitOnError)
	typeFlag := fs.String("type", "public-tenders", "minor-contracts (mc/min) or public-tenders (pt/pub)")
	start := fs.String("start", "", "range start period, YYYY or YYYYMM")
	end := fs.String("end", "", "range end period, YYYY or YYYYMM")
	batchSize := fs.Int("batch-size", 0, "entries per columnar batch (0 = use environment/default)")
	fs.Parse(os.Args[2:])

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	procType := config.ParseProcurementType(*typeFlag)
	cfg := config.Load(config.Options{BatchSize: *batchSize})

	logger.Info("starting ingest",
		zap.String("type", string(procType)),
		zap.String("start", *start),
		zap.String("end", *end),
	)

	p, err := pipeline.New(logger)
	if err != nil {
		logger.Error("pipeline construction failed", zap.Error(err))
		os.Exit(exitCode(err))
	}
	runErr := p.Run(context.Background(), cfg.LandingURL(procType), procType, *start, *end, cfg)
	if runErr != nil {
		logger.Error("ingest failed", zap.Error(runErr))
		os.Exit(exitCode(runErr))
	}

	logger.Info("ingest complete")
}

// exitCode maps an error-kind to a non-zero process exit status. Each kind
// has its own status, except InvalidInput and PeriodValidationError, which
// share status 2.
func exitCode(err error) int {
	switch err.(type) {
	case *errs.InvalidInput, *errs.PeriodValidationError:
		return 2
	case *errs.NetworkError:
		return 3
	case *errs.IoError:
		return 4
	case *errs.ParseError:
		return 5
	case *errs.UrlError:
		return 6
	case *errs.RegexError:
		return 7
	case *errs.SelectorError:
		return 8
	default:
		return 1
	}
}
