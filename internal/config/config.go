package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStartURL    = "https://alice-in-borderland.com/manga/alice-in-borderland-chapter-1/"
	DefaultOutput      = "pdf"
	DefaultConcurrency = 8
	DefaultQuality     = 100
	DefaultTimeout     = 30
)

type Config struct {
	StartURL    string `yaml:"start_url"`
	Output      string `yaml:"output"`
	Concurrency int    `yaml:"concurrency"`
	// Quality 100 keeps pages as downloaded; lower values re-encode to JPEG.
	Quality        int  `yaml:"compression_quality"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	Debug          bool `yaml:"debug"`

	ContentSelector  string `yaml:"content_selector"`
	ImageSelector    string `yaml:"image_selector"`
	NextSelector     string `yaml:"next_selector"`
	NextLinkSelector string `yaml:"next_link_selector"`

	Cookie           string `yaml:"cookie"`
	CookieFile       string `yaml:"cookie_file"`
	UserAgent        string `yaml:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`
}

// Options carries command line overrides. Zero values leave the file value.
type Options struct {
	IgnoreConfig     bool
	Debug            bool
	StartURL         string
	Output           string
	Concurrency      int
	Quality          int
	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool
}

func DefaultConfig() *Config {
	return &Config{
		StartURL:         DefaultStartURL,
		Output:           DefaultOutput,
		Concurrency:      DefaultConcurrency,
		Quality:          DefaultQuality,
		TimeoutSeconds:   DefaultTimeout,
		ContentSelector:  "div.entry-content p",
		ImageSelector:    "img",
		NextSelector:     "div.nav-next",
		NextLinkSelector: "a[href]",
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.StartURL) == "" {
		errs = append(errs, errors.New("start_url is empty"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.Quality <= 0 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("compression_quality must be in (0,100], got %d", c.Quality))
	}
	if c.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds))
	}

	return errors.Join(errs...)
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadYAML reads path over the defaults, so keys missing from the file keep
// their default values.
func LoadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return c, nil
}

// LoadMerged resolves the active profile of s, applies opts on top and
// validates the result. The second return value describes where the base
// config came from.
func LoadMerged(s *Store, opts Options) (*Config, string, error) {
	var (
		cfg  *Config
		used string
	)

	switch activePath, err := s.ActivePath(); {
	case opts.IgnoreConfig:
		cfg, used = DefaultConfig(), "(ignored config)"
	case errors.Is(err, ErrNoConfig):
		cfg, used = DefaultConfig(), "(default config in memory, run `mangapdf config init` to create one)"
	case err != nil:
		return nil, "", err
	default:
		cfg, err = LoadYAML(activePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
		}
		used = activePath
	}

	mergeConfig(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}

	return cfg, used, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.StartURL != "" {
		c.StartURL = o.StartURL
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Concurrency != 0 {
		c.Concurrency = o.Concurrency
	}
	if o.Quality != 0 {
		c.Quality = o.Quality
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
}

func (c *Config) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, " -start_url: %s\n", c.StartURL)
	_, _ = fmt.Fprintf(w, " -output: %s\n", c.Output)
	_, _ = fmt.Fprintf(w, " -concurrency: %d\n", c.Concurrency)
	_, _ = fmt.Fprintf(w, " -compression_quality: %d\n", c.Quality)
	_, _ = fmt.Fprintf(w, " -timeout_seconds: %d\n", c.TimeoutSeconds)
	if c.Debug {
		_, _ = fmt.Fprintf(w, " -debug: %t\n", c.Debug)
	}
	_, _ = fmt.Fprintf(w, " -content_selector: %s\n", c.ContentSelector)
	_, _ = fmt.Fprintf(w, " -next_selector: %s\n", c.NextSelector)
	if c.CookieFile != "" {
		_, _ = fmt.Fprintf(w, " -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		_, _ = fmt.Fprintf(w, " -user_agent: %s\n", c.UserAgent)
	}
	if c.CloudflareBypass {
		_, _ = fmt.Fprintf(w, " -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
}
