package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"kontor/internal/config"
	"kontor/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("KONTOR_TEST_VALUE=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KONTOR_TEST_VALUE", "")
	os.Unsetenv("KONTOR_TEST_VALUE")

	LoadEnvFile(path)
	if got := os.Getenv("KONTOR_TEST_VALUE"); got != "from-file" {
		t.Errorf("KONTOR_TEST_VALUE = %q, want from-file", got)
	}

	// missing files are ignored
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug", io.Discard)
	if logger.Component() != log.ComponentApp {
		t.Errorf("Component() = %q", logger.Component())
	}
	if SetupLogger("shouty", io.Discard) == nil {
		t.Error("unknown levels should still yield a logger")
	}
}

func TestInitAMQPDisabled(t *testing.T) {
	logger := SetupLogger("error", io.Discard)
	if client := InitAMQP(logger, &config.Config{}); client != nil {
		t.Error("expected nil client when messaging is disabled")
	}
}

func TestNewReportService(t *testing.T) {
	logger := SetupLogger("error", io.Discard)
	repo := InitSQLite(logger, filepath.Join(t.TempDir(), "kontor.db"))
	defer repo.Close()

	cfg := &config.Config{CalcWorkers: 2, ReportCacheSize: 4}
	if svc := NewReportService(logger, cfg, repo); svc == nil || svc.Cache() == nil {
		t.Error("expected a report service with a cleanable cache")
	}
}
