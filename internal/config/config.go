// =============================================================================
// NF-e to DANFE Converter - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Values are resolved in
// this order, later sources winning:
//
//   1. Built-in defaults
//   2. The YAML file (config.yaml by default; a missing file is not an error)
//   3. A .env file, loaded into the environment when present
//   4. DANFE_* environment variables
//   5. Command-line flags (applied by the cmd package)
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/compose"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/danfe"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/htmltree"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/logging"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/pdf"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/render"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvSourceDir    = "DANFE_SOURCE_DIR"
	EnvOutputDir    = "DANFE_OUTPUT_DIR"
	EnvTemplatePath = "DANFE_TEMPLATE_PATH"
	EnvLogLevel     = "DANFE_LOG_LEVEL"
	EnvChromePath   = "DANFE_CHROME_PATH"
	EnvPageCapacity = "DANFE_PAGE_CAPACITY"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// SourceDir is scanned recursively for NF-e XML files.
	// Default: "./xml"
	SourceDir string `yaml:"source_dir"`

	// OutputDir receives the generated PDFs, reports and logs.
	// Default: "./pdf"
	OutputDir string `yaml:"output_dir"`

	// TemplatePath is the DANFE HTML template.
	// Default: "./nfe_vertical.html"
	TemplatePath string `yaml:"template_path"`

	// =========================================================================
	// LAYOUT SETTINGS
	// =========================================================================

	// PageCapacity is the number of item rows printed per page.
	// Default: 15
	PageCapacity int `yaml:"page_capacity"`

	// AdditionalInfoSeparator joins the fisco and taxpayer notes.
	// Default: " | "
	AdditionalInfoSeparator string `yaml:"additional_info_separator"`

	// LogoURL is substituted for [url_logo].
	LogoURL string `yaml:"logo_url"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	Report   ReportConfig   `yaml:"report"`
	Renderer RendererConfig `yaml:"renderer"`
	Template TemplateConfig `yaml:"template"`
}

// ReportConfig controls the per-run XLSX report.
type ReportConfig struct {
	// Enabled defaults to true when unset.
	Enabled *bool `yaml:"enabled"`

	// Dir defaults to the output directory.
	Dir string `yaml:"dir"`
}

// RendererConfig configures the headless browser.
type RendererConfig struct {
	ChromePath string        `yaml:"chrome_path"`
	Timeout    time.Duration `yaml:"timeout"`
	Sanitize   pdf.Sanitizer `yaml:"sanitize"`
}

// TemplateConfig lists the template sections removed before composition.
// A nil list means compose.DefaultRemovedSections; an explicit empty list
// removes nothing.
type TemplateConfig struct {
	RemoveSections []htmltree.Selector `yaml:"remove_sections"`
}

// ReportEnabled reports whether the XLSX report should be written.
func (c *Config) ReportEnabled() bool {
	return c.Report.Enabled == nil || *c.Report.Enabled
}

// ReportDir returns the report directory.
func (c *Config) ReportDir() string {
	if c.Report.Dir != "" {
		return c.Report.Dir
	}
	return c.OutputDir
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads configPath and the .env file of the working directory.
func Load(configPath string) (*Config, error) {
	return LoadFiles(configPath, ".env")
}

// LoadFiles loads the configuration.
//
// PARAMETERS:
//   - configPath: The YAML file. A missing file leaves the defaults in place.
//   - envPath: A dotenv file loaded into the environment. Missing is fine;
//     variables already set in the environment are not overwritten.
//
// RETURNS:
//   - The resolved configuration.
//   - An error if a file is unreadable or the result is invalid.
func LoadFiles(configPath, envPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnv copies DANFE_* variables over the file values.
func applyEnv(cfg *Config) error {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.SourceDir, EnvSourceDir)
	set(&cfg.OutputDir, EnvOutputDir)
	set(&cfg.TemplatePath, EnvTemplatePath)
	set(&cfg.LogLevel, EnvLogLevel)
	set(&cfg.Renderer.ChromePath, EnvChromePath)

	if v := os.Getenv(EnvPageCapacity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPageCapacity, v, err)
		}
		cfg.PageCapacity = n
	}
	return nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.SourceDir == "" {
		cfg.SourceDir = "./xml"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./pdf"
	}
	if cfg.TemplatePath == "" {
		cfg.TemplatePath = "./nfe_vertical.html"
	}
	if cfg.PageCapacity == 0 {
		cfg.PageCapacity = render.DefaultPageCapacity
	}
	if cfg.AdditionalInfoSeparator == "" {
		cfg.AdditionalInfoSeparator = danfe.DefaultInfoSeparator
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	def := pdf.DefaultSanitizer()
	if cfg.Renderer.Sanitize.StripProperties == nil {
		cfg.Renderer.Sanitize.StripProperties = def.StripProperties
	}
	if cfg.Renderer.Sanitize.ForceVisible == nil {
		cfg.Renderer.Sanitize.ForceVisible = def.ForceVisible
	}
	if cfg.Template.RemoveSections == nil {
		cfg.Template.RemoveSections = append([]htmltree.Selector(nil), compose.DefaultRemovedSections...)
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.PageCapacity <= 0 {
		return fmt.Errorf("page_capacity must be positive, got %d", c.PageCapacity)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Renderer.Timeout < 0 {
		return fmt.Errorf("renderer.timeout must not be negative, got %s", c.Renderer.Timeout)
	}
	for _, s := range c.Template.RemoveSections {
		if s.Tag == "" && s.Class == "" {
			return errors.New("template.remove_sections entries need a tag or a class")
		}
	}
	return nil
}
