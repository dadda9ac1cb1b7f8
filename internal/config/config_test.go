package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_MatchesHeuristicConstants(t *testing.T) {
	cfg := Default()

	if cfg.Match.FaceThreshold != 20.0 {
		t.Errorf("expected face threshold 20.0, got %v", cfg.Match.FaceThreshold)
	}
	if cfg.Match.Window != 5 {
		t.Errorf("expected window 5, got %d", cfg.Match.Window)
	}
	if cfg.Match.WindowWorkers != 1 {
		t.Errorf("expected sequential window evaluation, got %d workers", cfg.Match.WindowWorkers)
	}
	if cfg.OCR.Engine != "tesseract" {
		t.Errorf("expected tesseract engine, got %s", cfg.OCR.Engine)
	}
	if cfg.Output.UnmatchedDir != "unmatched" {
		t.Errorf("expected unmatched dir 'unmatched', got %s", cfg.Output.UnmatchedDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{"unset", "", 7},
		{"valid", "3", 3},
		{"negative", "-1", 7},
		{"zero", "0", 7},
		{"garbage", "abc", 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("BADGE_TEST_INT", tc.value)
			if got := envInt("BADGE_TEST_INT", 7); got != tc.expected {
				t.Errorf("envInt(%q) = %d; want %d", tc.value, got, tc.expected)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FACE_THRESHOLD", "12.5")
	t.Setenv("MATCH_WINDOW", "3")
	t.Setenv("OCR_ENGINE", "ollama")
	t.Setenv("FAIL_FAST", "true")

	cfg := Load()

	if cfg.Match.FaceThreshold != 12.5 {
		t.Errorf("expected threshold 12.5, got %v", cfg.Match.FaceThreshold)
	}
	if cfg.Match.Window != 3 {
		t.Errorf("expected window 3, got %d", cfg.Match.Window)
	}
	if cfg.OCR.Engine != "ollama" {
		t.Errorf("expected ollama engine, got %s", cfg.OCR.Engine)
	}
	if !cfg.Match.FailFast {
		t.Error("expected fail fast to be enabled")
	}
}

func TestLoadFile_TOMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "badge-rename.toml")
	content := `
[match]
window = 4
window_workers = 2

[ocr]
engine = "gemini"

[gemini]
api_key = "from-file"

[output]
jpeg_quality = 90
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JPEG_QUALITY", "60")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Match.Window != 4 {
		t.Errorf("expected window 4 from file, got %d", cfg.Match.Window)
	}
	if cfg.Match.WindowWorkers != 2 {
		t.Errorf("expected 2 workers from file, got %d", cfg.Match.WindowWorkers)
	}
	if cfg.Match.FaceThreshold != 20.0 {
		t.Errorf("expected default threshold to survive, got %v", cfg.Match.FaceThreshold)
	}
	if cfg.Gemini.APIKey != "from-file" {
		t.Errorf("expected api key from file, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Output.JPEGQuality != 60 {
		t.Errorf("expected env to override quality to 60, got %d", cfg.Output.JPEGQuality)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoadFile_UnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[match]\nwindoww = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero threshold", func(c *Config) { c.Match.FaceThreshold = 0 }, "face_threshold"},
		{"zero window", func(c *Config) { c.Match.Window = 0 }, "match.window"},
		{"quality too high", func(c *Config) { c.Output.JPEGQuality = 101 }, "jpeg_quality"},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "abbyy" }, "unknown ocr engine"},
		{"openai without token", func(c *Config) { c.OCR.Engine = "openai" }, "OPENAI_TOKEN"},
		{"unknown detector", func(c *Config) { c.Face.Detector = "dlib" }, "unknown face detector"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestGetModelPricing(t *testing.T) {
	cfg := Load()

	if p := cfg.GetModelPricing("gpt-4.1-mini"); p.Input == 0 || p.Output == 0 {
		t.Errorf("expected pricing for gpt-4.1-mini, got %+v", p)
	}
	if p := cfg.GetModelPricing("unknown-model"); p.Input != 0 || p.Output != 0 {
		t.Errorf("expected zero pricing for unknown model, got %+v", p)
	}
}
