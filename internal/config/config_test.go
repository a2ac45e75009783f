package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/atikulmunna/tailview/internal/parser"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxLines != 10000 || cfg.InitialReadBytes != 262144 || cfg.ReadChunkBytes != 65536 {
		t.Errorf("unexpected size defaults %+v", cfg)
	}
	if cfg.Debounce != 75*time.Millisecond {
		t.Errorf("expected 75ms debounce, got %s", cfg.Debounce)
	}
	if cfg.Format() != parser.FormatStandard {
		t.Errorf("expected standard format, got %s", cfg.Format())
	}
	if cfg.RootMarker != ".wix" || cfg.LogDir != "debug-logs" {
		t.Errorf("unexpected dirs %q %q", cfg.RootMarker, cfg.LogDir)
	}
}

func TestEitherFormatIsOptIn(t *testing.T) {
	t.Setenv("TAILVIEW_LINE_FORMAT", "either")

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Format() != parser.FormatEither {
		t.Errorf("expected either format from env, got %s", cfg.Format())
	}
}

func TestConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tailview.yaml")
	contents := "max_lines: 50\nline_format: legacy\ndebounce: 20ms\nfile_pattern: \"*-debug.log\"\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TAILVIEW_READ_CHUNK_BYTES", "1024")

	v, err := NewViper(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.MaxLines != 50 {
		t.Errorf("expected max_lines 50, got %d", cfg.MaxLines)
	}
	if cfg.Format() != parser.FormatLegacy {
		t.Errorf("expected legacy, got %s", cfg.Format())
	}
	if cfg.Debounce != 20*time.Millisecond {
		t.Errorf("expected 20ms, got %s", cfg.Debounce)
	}
	if cfg.ReadChunkBytes != 1024 {
		t.Errorf("expected env override 1024, got %d", cfg.ReadChunkBytes)
	}
	if cfg.FilePattern != "*-debug.log" {
		t.Errorf("unexpected pattern %q", cfg.FilePattern)
	}
}

func TestMissingExplicitConfigFile(t *testing.T) {
	if _, err := NewViper(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("max_lines", 0)
	v.Set("line_format", "json")
	v.Set("file_pattern", "[")
	v.Set("log_dir", "a/b")

	_, err := Load(v)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"max_lines", "json", "file_pattern", "log_dir"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}
