package columnar

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"sppd/internal/config"
	"sppd/internal/errs"
	"sppd/internal/xmlparse"
)

// Writer implements the parse_xmls operation: enumerate a period's
// extracted XML/Atom files, parse them in batches, and write the fixed
// 52-column schema to Parquet.
type Writer struct {
	Log *zap.Logger
}

// NewWriter returns a Writer; a nil logger is replaced with a no-op one.
func NewWriter(log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{Log: log}
}

// Run processes every period in periods that has a corresponding extracted
// directory under cfg.DownloadDir(procType)/{period}/, writing batches (and
// optionally a concatenated per-period file) under cfg.OutputDir(procType).
func (w *Writer) Run(ctx context.Context, periods []string, procType config.ProcurementType, cfg *config.ResolvedConfig) error {
	sorted := make([]string, len(periods))
	copy(sorted, periods)
	sort.Strings(sorted)

	for _, period := range sorted {
		if err := w.runPeriod(ctx, period, procType, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) runPeriod(ctx context.Context, period string, procType config.ProcurementType, cfg *config.ResolvedConfig) error {
	extractedDir := filepath.Join(cfg.DownloadDir(procType), period)
	if _, err := os.Stat(extractedDir); err != nil {
		return nil
	}

	files, err := enumerateXMLFiles(extractedDir)
	if err != nil {
		return &errs.IoError{Op: "enumerate " + extractedDir, Err: err}
	}
	if len(files) == 0 {
		return nil
	}

	periodOutDir := filepath.Join(cfg.OutputDir(procType), period)
	start := time.Now()
	var totalBytes int64
	batchNum := 0
	createdDir := false

	for i := 0; i < len(files); i += cfg.BatchSize {
		end := i + cfg.BatchSize
		if end > len(files) {
			end = len(files)
		}
		chunk := files[i:end]

		entries, n, err := w.parseChunk(ctx, chunk, cfg.ReadConcurrency)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			continue
		}
		totalBytes += n

		if !createdDir {
			if err := os.RemoveAll(periodOutDir); err != nil {
				return &errs.IoError{Op: "clean " + periodOutDir, Err: err}
			}
			if err := os.MkdirAll(periodOutDir, 0o755); err != nil {
				return &errs.IoError{Op: "mkdir " + periodOutDir, Err: err}
			}
			createdDir = true
		}

		rec := BuildRecord(entries)
		batchPath := filepath.Join(periodOutDir, batchFileName(batchNum))
		err = WriteRecord(batchPath, rec)
		rec.Release()
		if err != nil {
			return err
		}
		batchNum++
	}

	if !createdDir {
		return nil
	}

	elapsed := time.Since(start)
	mbps := float64(totalBytes) / elapsed.Seconds() / (1 << 20)
	w.Log.Info("period parse complete",
		zap.String("period", period),
		zap.Int("batches", batchNum),
		zap.Duration("elapsed", elapsed),
		zap.Int64("bytes", totalBytes),
		zap.Float64("mb_per_sec", mbps),
	)

	if cfg.ConcatBatches {
		if err := w.concatPeriod(periodOutDir, cfg.OutputDir(procType), period); err != nil {
			return err
		}
	}
	return nil
}

// parseChunk reads chunk's files with at most readConcurrency outstanding
// reads, parses each in parallel, and collects their entries plus the
// total bytes read.
func (w *Writer) parseChunk(ctx context.Context, chunk []string, readConcurrency int) ([]xmlparse.Entry, int64, error) {
	sem := semaphore.NewWeighted(int64(readConcurrency))
	g, gctx := errgroup.WithContext(ctx)

	results := make([][]xmlparse.Entry, len(chunk))
	sizes := make([]int64, len(chunk))

	for i, path := range chunk {
		i, path := i, path
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			data, err := os.ReadFile(path)
			if err != nil {
				return &errs.IoError{Op: "read " + path, Err: err}
			}
			sizes[i] = int64(len(data))
			entries, err := xmlparse.ParseBytes(data, path)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var entries []xmlparse.Entry
	var total int64
	for i := range chunk {
		entries = append(entries, results[i]...)
		total += sizes[i]
	}
	return entries, total, nil
}

func batchFileName(n int) string {
	return "batch_" + strconv.Itoa(n) + ".parquet"
}

// concatPeriod reads back every batch_N.parquet written for a period,
// merges their rows into a single record, writes it as {period}.parquet
// directly under outputDir, and removes the per-batch subdirectory.
func (w *Writer) concatPeriod(periodOutDir, outputDir, period string) error {
	batchFiles, err := enumerateParquet(periodOutDir)
	if err != nil {
		return &errs.IoError{Op: "enumerate " + periodOutDir, Err: err}
	}

	records := make([]arrow.Record, 0, len(batchFiles))
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	var schema *arrow.Schema
	for _, path := range batchFiles {
		rec, err := readParquetRecord(path)
		if err != nil {
			return err
		}
		if schema == nil {
			schema = rec.Schema()
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil
	}

	merged, err := array.ConcatenateRecords(records, memory.NewGoAllocator())
	if err != nil {
		return &errs.IoError{Op: "concatenate batches for " + period, Err: err}
	}
	defer merged.Release()

	mergedPath := filepath.Join(outputDir, period+".parquet")
	if err := WriteRecord(mergedPath, merged); err != nil {
		return err
	}
	if err := os.RemoveAll(periodOutDir); err != nil {
		return &errs.IoError{Op: "remove " + periodOutDir, Err: err}
	}
	return nil
}

// readParquetRecord reads a single-row-group Parquet batch file back into
// one Arrow record, for concat_batches merging.
func readParquetRecord(path string) (arrow.Record, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, &errs.IoError{Op: "open parquet " + path, Err: err}
	}
	defer rdr.Close()

	arrRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, &errs.IoError{Op: "open arrow reader " + path, Err: err}
	}

	table, err := arrRdr.ReadTable(context.Background())
	if err != nil {
		return nil, &errs.IoError{Op: "read table " + path, Err: err}
	}
	defer table.Release()

	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()
	if !tr.Next() {
		return nil, &errs.IoError{Op: "read record " + path, Err: fmt.Errorf("empty batch")}
	}
	rec := tr.Record()
	rec.Retain()
	return rec, nil
}

func enumerateParquet(dir string) ([]string, error) {
	var out []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// enumerateXMLFiles recursively lists .xml/.atom files (case-insensitive)
// under dir, in a deterministic (lexically sorted) order.
func enumerateXMLFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".xml" || ext == ".atom" {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
