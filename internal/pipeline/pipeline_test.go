package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"sppd/internal/config"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<entry>
  <id>https://contrataciondelestado.es/sindicacion/contratos/1</id>
  <title>Contrato de prueba</title>
  <cac-place-ext:ContractFolderStatus xmlns:cac-place-ext="urn:dgpe:names:draft:codice:schema:xsd:ContractFolderStatus">
    <cbc:ContractFolderID>EXP-1</cbc:ContractFolderID>
  </cac-place-ext:ContractFolderStatus>
</entry>
</feed>`

func buildZipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("entry.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(sampleFeed)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRunEndToEnd(t *testing.T) {
	zipBytes := buildZipBytes(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="files/procurement_202301.zip">Enero</a></body></html>`))
	})
	mux.HandleFunc("/page/files/procurement_202301.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	root := t.TempDir()
	cfg := config.Load(config.Options{RootDir: root})
	cfg.ConcatBatches = false

	p, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = p.Run(context.Background(), srv.URL+"/page/", config.PublicTenders, "", "", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batchPath := filepath.Join(cfg.OutputDir(config.PublicTenders), "202301", "batch_0.parquet")
	if _, err := os.Stat(batchPath); err != nil {
		t.Fatalf("expected batch file to exist: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.DownloadDir(config.PublicTenders), "202301.zip")); !os.IsNotExist(err) {
		t.Fatal("expected cleanup to remove the downloaded zip")
	}
	if _, err := os.Stat(filepath.Join(cfg.DownloadDir(config.PublicTenders), "202301")); !os.IsNotExist(err) {
		t.Fatal("expected cleanup to remove the extracted directory")
	}
}

func TestRunEndToEndConcatBatchesDefault(t *testing.T) {
	zipBytes := buildZipBytes(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="files/procurement_202301.zip">Enero</a></body></html>`))
	})
	mux.HandleFunc("/page/files/procurement_202301.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	root := t.TempDir()
	cfg := config.Load(config.Options{RootDir: root})
	if !cfg.ConcatBatches {
		t.Fatal("expected config.Load to default ConcatBatches to true")
	}

	p, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = p.Run(context.Background(), srv.URL+"/page/", config.PublicTenders, "", "", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mergedPath := filepath.Join(cfg.OutputDir(config.PublicTenders), "202301.parquet")
	if _, err := os.Stat(mergedPath); err != nil {
		t.Fatalf("expected merged per-period file to exist: %v", err)
	}

	batchDir := filepath.Join(cfg.OutputDir(config.PublicTenders), "202301")
	if _, err := os.Stat(batchDir); !os.IsNotExist(err) {
		t.Fatal("expected per-batch subdirectory to be removed after concatenation")
	}
}

func TestRunNoPeriodsSelectedIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>no links here</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	root := t.TempDir()
	cfg := config.Load(config.Options{RootDir: root})

	p, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Run(context.Background(), srv.URL+"/page/", config.PublicTenders, "", "", cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunUnknownStartPeriodIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="files/procurement_202301.zip">Enero</a></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	root := t.TempDir()
	cfg := config.Load(config.Options{RootDir: root})

	p, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = p.Run(context.Background(), srv.URL+"/page/", config.PublicTenders, "209901", "", cfg)
	if err == nil {
		t.Fatal("expected an error for a start period absent from the discovered links")
	}
}
