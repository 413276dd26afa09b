package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nhanes.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Cycle != "_L" {
		t.Fatalf("cycle = %q, want _L", c.Cycle)
	}
	if c.DataExt != ".xpt" {
		t.Fatalf("data_ext = %q", c.DataExt)
	}
	if c.HTTPTimeoutSec != 120 || c.LogLevel != "info" {
		t.Fatalf("timeout/level = %d/%q", c.HTTPTimeoutSec, c.LogLevel)
	}
	if len(c.Categories) != 3 {
		t.Fatalf("categories = %v", c.Categories)
	}
	for _, cat := range c.Categories {
		if !strings.HasPrefix(cat.URL, c.BaseURL+"/") {
			t.Fatalf("category %s URL %q not built from base_url %q", cat.Name, cat.URL, c.BaseURL)
		}
	}
	if len(c.Figures) == 0 {
		t.Fatal("default figures missing")
	}
}

func TestLoadBaseURLBuildsListings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nhanes.yaml")
	body := "base_url: https://mirror.example.org\ncycle: _M\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Cycle != "_M" {
		t.Fatalf("cycle = %q, want _M", c.Cycle)
	}
	for _, cat := range c.Categories {
		if !strings.HasPrefix(cat.URL, "https://mirror.example.org/") {
			t.Fatalf("category %s URL %q not resolved against the configured origin", cat.Name, cat.URL)
		}
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "nhanes.yaml")

	c := &Global{Cycle: "_L", BaseURL: "https://wwwn.cdc.gov", DownloadDir: "data/raw", HTTPTimeoutSec: 60, LogLevel: "warn"}
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DownloadDir != "data/raw" || got.HTTPTimeoutSec != 60 || got.LogLevel != "warn" {
		t.Fatalf("roundtrip = %+v", got)
	}
}
