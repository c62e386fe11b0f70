package columnar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sppd/internal/config"
)

const validFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<entry>
  <id>https://contrataciondelestado.es/sindicacion/contratos/1</id>
  <title>Contrato de prueba</title>
</entry>
</feed>`

func newTestConfig(t *testing.T, procDir string) *config.ResolvedConfig {
	t.Helper()
	return &config.ResolvedConfig{
		DownloadDirPublicTenders: procDir,
		OutputDirPublicTenders:   filepath.Join(t.TempDir(), "out"),
		BatchSize:                10,
		ReadConcurrency:          2,
	}
}

// TestRunFailsPeriodOnMalformedFile locks in the fix for C6/C7's
// fatal-on-parse-error requirement: one unparseable file in a period must
// fail that period's Run, not be silently skipped.
func TestRunFailsPeriodOnMalformedFile(t *testing.T) {
	root := t.TempDir()
	periodDir := filepath.Join(root, "202301")
	if err := os.MkdirAll(periodDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(periodDir, "good.xml"), []byte(validFeed), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(periodDir, "bad.xml"), []byte("<not-valid-xml"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := newTestConfig(t, root)
	w := NewWriter(nil)
	err := w.Run(context.Background(), []string{"202301"}, config.PublicTenders, cfg)
	if err == nil {
		t.Fatal("expected an error from the malformed file, got nil")
	}

	outDir := filepath.Join(cfg.OutputDir(config.PublicTenders), "202301")
	if _, statErr := os.Stat(outDir); statErr == nil {
		entries, _ := os.ReadDir(outDir)
		if len(entries) > 0 {
			t.Fatal("expected no batch output to survive a failed period")
		}
	}
}

// TestRunSucceedsOnValidFile is the control case for
// TestRunFailsPeriodOnMalformedFile: an all-valid period still writes a
// batch and returns no error.
func TestRunSucceedsOnValidFile(t *testing.T) {
	root := t.TempDir()
	periodDir := filepath.Join(root, "202303")
	if err := os.MkdirAll(periodDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(periodDir, "good.xml"), []byte(validFeed), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := newTestConfig(t, root)
	w := NewWriter(nil)
	if err := w.Run(context.Background(), []string{"202303"}, config.PublicTenders, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batchPath := filepath.Join(cfg.OutputDir(config.PublicTenders), "202303", "batch_0.parquet")
	if _, err := os.Stat(batchPath); err != nil {
		t.Fatalf("expected batch file to exist: %v", err)
	}
}
