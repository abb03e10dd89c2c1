package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values. They reproduce the layout the gallery has always used.
const (
	DefaultIndexFile         = "cache/volumes_issues.json"
	DefaultCacheDir          = "cache"
	DefaultCoversDir         = "nature_covers"
	DefaultCoverPrefix       = "nature"
	DefaultCoverURLTemplate  = "https://media.springernature.com/w440/springer-static/cover-hires/journal/41586/{volume}/{issue}"
	DefaultSourceURLTemplate = "https://www.nature.com/nature/volumes/{volume}/issues/{issue}"
	DefaultThumbnailsDir     = "nature_thumbnails"
	DefaultThumbnailSize     = 64
	DefaultThumbnailQuality  = 75
	DefaultDarkThreshold     = 100.0
	DefaultWorkers           = 4
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultRateLimit         = 5
	DefaultUserAgent         = "coverspectrum/1.0"
	DefaultCSVFile           = "cache/nature_covers_sorted.csv"
	DefaultRecordsFile       = "cache/nature_covers.json"
	DefaultHTMLFile          = "nature_color_spectrum.html"
	DefaultTitle             = "Nature Covers: Dark vs Light"
	DefaultDatasetteDB       = "./coverspectrum.db"
)

// Config is the full runtime configuration. It is built once by Load and
// handed to each component; nothing reads viper after that.
type Config struct {
	IndexFile string
	CacheDir  string

	Covers     CoversConfig
	Thumbnails ThumbnailsConfig
	Classify   ClassifyConfig
	Pipeline   PipelineConfig
	HTTP       HTTPConfig
	Output     OutputConfig
	Datasette  DatasetteConfig
	Metrics    MetricsConfig
}

// CoversConfig controls where cover originals come from and where they live.
type CoversConfig struct {
	Dir               string
	Prefix            string
	URLTemplate       string
	SourceURLTemplate string
}

// ThumbnailsConfig controls the derived thumbnail artifacts.
type ThumbnailsConfig struct {
	Dir     string
	Size    int
	Quality int
}

// ClassifyConfig holds the brightness policy.
type ClassifyConfig struct {
	// Threshold is the mean grayscale value (0-255) below which a cover is dark.
	Threshold float64
}

// PipelineConfig sizes the worker pool.
type PipelineConfig struct {
	Workers int
}

// HTTPConfig configures cover downloads.
type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
	// RateLimit is requests per second against the media host; 0 disables limiting.
	RateLimit int
}

// OutputConfig names the generated artifacts.
type OutputConfig struct {
	CSVFile     string
	RecordsFile string
	HTMLFile    string
	Title       string
}

// DatasetteConfig controls the optional SQLite/Datasette output.
type DatasetteConfig struct {
	Enabled   bool
	Mode      string // "local" or "remote"
	DBFile    string
	RemoteURL string
	APIToken  string
}

// MetricsConfig controls the optional Prometheus textfile output.
type MetricsConfig struct {
	Textfile string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("index.file", DefaultIndexFile)
	v.SetDefault("cache.dir", DefaultCacheDir)

	v.SetDefault("covers.dir", DefaultCoversDir)
	v.SetDefault("covers.prefix", DefaultCoverPrefix)
	v.SetDefault("covers.url_template", DefaultCoverURLTemplate)
	v.SetDefault("covers.source_url_template", DefaultSourceURLTemplate)

	v.SetDefault("thumbnails.dir", DefaultThumbnailsDir)
	v.SetDefault("thumbnails.size", DefaultThumbnailSize)
	v.SetDefault("thumbnails.quality", DefaultThumbnailQuality)

	v.SetDefault("classify.threshold", DefaultDarkThreshold)
	v.SetDefault("pipeline.workers", DefaultWorkers)

	v.SetDefault("http.timeout", DefaultHTTPTimeout.String())
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.rate_limit", DefaultRateLimit)

	v.SetDefault("output.csv", DefaultCSVFile)
	v.SetDefault("output.records", DefaultRecordsFile)
	v.SetDefault("output.html", DefaultHTMLFile)
	v.SetDefault("output.title", DefaultTitle)

	v.SetDefault("datasette.enabled", false)
	v.SetDefault("datasette.mode", "local")
	v.SetDefault("datasette.dbfile", DefaultDatasetteDB)
	v.SetDefault("datasette.remote_url", "")
	v.SetDefault("datasette.api_token", "")

	v.SetDefault("metrics.textfile", "")
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// defaults are constants; failing here is a programming error
		panic(err)
	}
	return cfg
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	timeout, err := time.ParseDuration(v.GetString("http.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid http.timeout %q: %w", v.GetString("http.timeout"), err)
	}

	cfg := &Config{
		IndexFile: v.GetString("index.file"),
		CacheDir:  v.GetString("cache.dir"),
		Covers: CoversConfig{
			Dir:               v.GetString("covers.dir"),
			Prefix:            v.GetString("covers.prefix"),
			URLTemplate:       v.GetString("covers.url_template"),
			SourceURLTemplate: v.GetString("covers.source_url_template"),
		},
		Thumbnails: ThumbnailsConfig{
			Dir:     v.GetString("thumbnails.dir"),
			Size:    v.GetInt("thumbnails.size"),
			Quality: v.GetInt("thumbnails.quality"),
		},
		Classify: ClassifyConfig{
			Threshold: v.GetFloat64("classify.threshold"),
		},
		Pipeline: PipelineConfig{
			Workers: v.GetInt("pipeline.workers"),
		},
		HTTP: HTTPConfig{
			Timeout:   timeout,
			UserAgent: v.GetString("http.user_agent"),
			RateLimit: v.GetInt("http.rate_limit"),
		},
		Output: OutputConfig{
			CSVFile:     v.GetString("output.csv"),
			RecordsFile: v.GetString("output.records"),
			HTMLFile:    v.GetString("output.html"),
			Title:       v.GetString("output.title"),
		},
		Datasette: DatasetteConfig{
			Enabled:   v.GetBool("datasette.enabled"),
			Mode:      strings.ToLower(v.GetString("datasette.mode")),
			DBFile:    v.GetString("datasette.dbfile"),
			RemoteURL: v.GetString("datasette.remote_url"),
			APIToken:  v.GetString("datasette.api_token"),
		},
		Metrics: MetricsConfig{
			Textfile: v.GetString("metrics.textfile"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	if c.Covers.Dir == "" {
		return fmt.Errorf("covers.dir must not be empty")
	}
	if c.Thumbnails.Dir == "" {
		return fmt.Errorf("thumbnails.dir must not be empty")
	}
	if !strings.Contains(c.Covers.URLTemplate, "{volume}") || !strings.Contains(c.Covers.URLTemplate, "{issue}") {
		return fmt.Errorf("covers.url_template must contain {volume} and {issue}: %q", c.Covers.URLTemplate)
	}
	if c.Thumbnails.Size <= 0 {
		return fmt.Errorf("thumbnails.size must be positive, got %d", c.Thumbnails.Size)
	}
	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		return fmt.Errorf("thumbnails.quality must be within 1-100, got %d", c.Thumbnails.Quality)
	}
	if c.Classify.Threshold < 0 || c.Classify.Threshold > 255 {
		return fmt.Errorf("classify.threshold must be within 0-255, got %v", c.Classify.Threshold)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit must not be negative, got %d", c.HTTP.RateLimit)
	}
	switch c.Datasette.Mode {
	case "local", "remote":
	default:
		return fmt.Errorf("datasette.mode must be local or remote, got %q", c.Datasette.Mode)
	}
	if c.Datasette.Enabled && c.Datasette.Mode == "remote" && c.Datasette.RemoteURL == "" {
		return fmt.Errorf("datasette.remote_url is required when datasette.mode is remote")
	}
	return nil
}

// Expand substitutes {volume} and {issue} in a URL template.
func Expand(template, volume, issue string) string {
	r := strings.NewReplacer("{volume}", volume, "{issue}", issue)
	return r.Replace(template)
}
