package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != 8742 {
		t.Fatalf("default port wrong: %d", cfg.Port)
	}
	if cfg.EmbeddingDim != 768 || cfg.EmbeddingModel != "nomic-embed-text" {
		t.Fatalf("embedding defaults wrong: %d %s", cfg.EmbeddingDim, cfg.EmbeddingModel)
	}
	if cfg.IndexBackend != "auto" {
		t.Fatalf("default backend wrong: %s", cfg.IndexBackend)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "port: 9000\ndbPath: /tmp/a.db\ndefaultThreshold: 0.5\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("KSTORE_CONFIG", path)

	t.Run("yaml overrides defaults", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if cfg.Port != 9000 || cfg.DBPath != "/tmp/a.db" || cfg.DefaultThreshold != 0.5 {
			t.Fatalf("yaml not applied: %+v", cfg)
		}
	})

	t.Run("env overrides yaml", func(t *testing.T) {
		t.Setenv("PORT", "9100")
		t.Setenv("INDEX_BACKEND", "chromem")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if cfg.Port != 9100 {
			t.Fatalf("env port not applied: %d", cfg.Port)
		}
		if cfg.IndexBackend != "chromem" {
			t.Fatalf("env backend not applied: %s", cfg.IndexBackend)
		}
	})
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"PORT":              "-1",
		"EMBEDDING_DIM":     "0",
		"INDEX_BACKEND":     "faiss",
		"DEFAULT_THRESHOLD": "1.5",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
