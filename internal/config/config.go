package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/badge-rename/internal/constants"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

type Config struct {
	Match     MatchConfig     `toml:"match"`
	OCR       OCRConfig       `toml:"ocr"`
	Face      FaceConfig      `toml:"face"`
	Output    OutputConfig    `toml:"output"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Prices    PricesConfig    `toml:"-"`
}

type MatchConfig struct {
	FaceThreshold float64 `toml:"face_threshold"` // Euclidean distance, strict less-than
	Window        int     `toml:"window"`         // neighbours searched on each side
	WindowWorkers int     `toml:"window_workers"` // parallel window evaluations (1 = sequential)
	FailFast      bool    `toml:"fail_fast"`      // abort on the first OCR/detector error
}

type OCRConfig struct {
	Engine      string `toml:"engine"`   // tesseract, openai, gemini, ollama
	Language    string `toml:"language"` // tesseract language model
	PageSegMode int    `toml:"page_seg_mode"`
}

type FaceConfig struct {
	Detector     string  `toml:"detector"`     // haar or server
	CascadePath  string  `toml:"cascade_path"` // haar cascade XML (optional, searched in well-known paths)
	ScaleFactor  float64 `toml:"scale_factor"`
	MinNeighbors int     `toml:"min_neighbors"`
}

type OutputConfig struct {
	UnmatchedDir string `toml:"unmatched_dir"`
	JPEGQuality  int    `toml:"jpeg_quality"`
}

type OpenAIConfig struct {
	Token string `toml:"token"`
}

type GeminiConfig struct {
	APIKey string `toml:"api_key"`
}

type OllamaConfig struct {
	URL   string `toml:"url"`   // defaults to http://localhost:11434
	Model string `toml:"model"` // defaults to llama3.2-vision:11b
}

type EmbeddingConfig struct {
	URL string `toml:"url"` // face server, defaults to http://localhost:8000
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Match: MatchConfig{
			FaceThreshold: constants.FaceThreshold,
			Window:        constants.WindowSize,
			WindowWorkers: 1,
		},
		OCR: OCRConfig{
			Engine:      "tesseract",
			Language:    constants.DefaultOCRLanguage,
			PageSegMode: constants.TesseractPageSegMode,
		},
		Face: FaceConfig{
			Detector:     "haar",
			ScaleFactor:  constants.HaarScaleFactor,
			MinNeighbors: constants.HaarMinNeighbors,
		},
		Output: OutputConfig{
			UnmatchedDir: constants.DefaultUnmatchedDir,
			JPEGQuality:  constants.DefaultJPEGQuality,
		},
	}
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// Load returns the default configuration overridden by environment variables.
func Load() *Config {
	cfg := Default()
	cfg.applyEnv()
	cfg.Prices = loadPrices()
	return &cfg
}

// LoadFile decodes a TOML file over the defaults and then applies environment
// overrides. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.Prices = loadPrices()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Match.FaceThreshold = envFloat("FACE_THRESHOLD", c.Match.FaceThreshold)
	c.Match.Window = envInt("MATCH_WINDOW", c.Match.Window)
	c.Match.WindowWorkers = envInt("WINDOW_WORKERS", c.Match.WindowWorkers)
	c.Match.FailFast = envBool("FAIL_FAST", c.Match.FailFast)

	c.OCR.Engine = envString("OCR_ENGINE", c.OCR.Engine)
	c.OCR.Language = envString("OCR_LANGUAGE", c.OCR.Language)
	c.OCR.PageSegMode = envInt("OCR_PAGE_SEG_MODE", c.OCR.PageSegMode)

	c.Face.Detector = envString("FACE_DETECTOR", c.Face.Detector)
	c.Face.CascadePath = envString("OPENCV_CASCADE_PATH", c.Face.CascadePath)

	c.Output.UnmatchedDir = envString("UNMATCHED_DIR", c.Output.UnmatchedDir)
	c.Output.JPEGQuality = envInt("JPEG_QUALITY", c.Output.JPEGQuality)

	c.OpenAI.Token = envString("OPENAI_TOKEN", c.OpenAI.Token)
	c.Gemini.APIKey = envString("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Ollama.URL = envString("OLLAMA_URL", c.Ollama.URL)
	c.Ollama.Model = envString("OLLAMA_MODEL", c.Ollama.Model)
	c.Embedding.URL = envString("EMBEDDING_URL", c.Embedding.URL)
}

func loadPrices() PricesConfig {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}
	return prices
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Match.FaceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("match.face_threshold must be positive, got %v", c.Match.FaceThreshold))
	}
	if c.Match.Window < 1 {
		errs = append(errs, fmt.Errorf("match.window must be at least 1, got %d", c.Match.Window))
	}
	if c.Match.WindowWorkers < 1 {
		errs = append(errs, fmt.Errorf("match.window_workers must be at least 1, got %d", c.Match.WindowWorkers))
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("output.jpeg_quality must be within 1-100, got %d", c.Output.JPEGQuality))
	}
	if strings.TrimSpace(c.Output.UnmatchedDir) == "" {
		errs = append(errs, errors.New("output.unmatched_dir is required"))
	}
	switch c.OCR.Engine {
	case "tesseract", "ollama":
	case "openai":
		if c.OpenAI.Token == "" {
			errs = append(errs, errors.New("ocr engine openai requires OPENAI_TOKEN"))
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("ocr engine gemini requires GEMINI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ocr engine %q", c.OCR.Engine))
	}
	switch c.Face.Detector {
	case "haar", "server":
	default:
		errs = append(errs, fmt.Errorf("unknown face detector %q", c.Face.Detector))
	}
	return errors.Join(errs...)
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}
