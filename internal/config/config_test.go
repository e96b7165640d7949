package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/memtower/pkg/errors"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[layout]
target_width = 5000.0
shape = "legacy"

[rules]
path = "/etc/memtower/rules.yaml"
case_sensitive = true

[cache]
url = "redis://localhost:6379/1"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path, true)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if f.Layout.TargetWidth != 5000 || f.Layout.HeightCap != 0 || f.Layout.Shape != "legacy" {
		t.Errorf("layout = %+v", f.Layout)
	}
	if f.Rules.Path != "/etc/memtower/rules.yaml" || !f.Rules.CaseSensitive {
		t.Errorf("rules = %+v", f.Rules)
	}
	if f.Cache.URL != "redis://localhost:6379/1" || f.Cache.Disabled {
		t.Errorf("cache = %+v", f.Cache)
	}
}

func TestLoadFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	f, err := LoadFile(path, false)
	if err != nil || f != (File{}) {
		t.Errorf("optional missing file: %+v, %v", f, err)
	}
	if _, err := LoadFile(path, true); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("required missing file: err = %v", err)
	}
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[layout]\nwidth = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path, true); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/rules.json"); got != filepath.Join(home, "rules.json") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs/rules.json"); got != "/abs/rules.json" {
		t.Errorf("expandHome changed an absolute path: %q", got)
	}
}

func TestDirsHonorXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")

	if p, _ := DefaultPath(); p != "/xdg/config/memtower/config.toml" {
		t.Errorf("DefaultPath = %q", p)
	}
	if d, _ := CacheDir(); d != "/xdg/cache/memtower" {
		t.Errorf("CacheDir = %q", d)
	}
}

func TestLoadServerFrom(t *testing.T) {
	cfg, err := LoadServerFrom(map[string]string{})
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.MaxBodyBytes != 64<<20 || cfg.ReadTimeout != 30*time.Second || cfg.WriteTimeout != 2*time.Minute {
		t.Errorf("defaults = %+v", cfg)
	}

	cfg, err = LoadServerFrom(map[string]string{
		"MEMTOWER_ADDR":           "127.0.0.1:9000",
		"MEMTOWER_CACHE_URL":      "mongodb://db/artifacts",
		"MEMTOWER_RULES":          "/rules.toml",
		"MEMTOWER_CASE_SENSITIVE": "true",
		"MEMTOWER_MAX_BODY_BYTES": "1024",
	})
	if err != nil {
		t.Fatalf("LoadServerFrom: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.CacheURL != "mongodb://db/artifacts" || cfg.Rules != "/rules.toml" || !cfg.CaseSensitive || cfg.MaxBodyBytes != 1024 {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := LoadServerFrom(map[string]string{"MEMTOWER_MAX_BODY_BYTES": "0"}); err == nil {
		t.Error("zero body limit accepted")
	}
	if _, err := LoadServerFrom(map[string]string{"MEMTOWER_MAX_BODY_BYTES": "lots"}); err == nil {
		t.Error("non-numeric body limit accepted")
	}
}
