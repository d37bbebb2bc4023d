package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the working directory and $HOME.
	FileName = ".covtrack.yaml"

	configName = ".covtrack"
	configType = "yaml"
	envPrefix  = "COVTRACK"
)

var (
	ErrInvalidBackend   = errors.New("invalid store backend")
	ErrInvalidFormat    = errors.New("invalid output format")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidRetries   = errors.New("store.max_retries must not be negative")
	ErrConfigExists     = errors.New("config file already exists")
)

var (
	backends   = []string{"github", "gcs", "fs"}
	formats    = []string{"text", "json"}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Config is the effective covtrack configuration.
type Config struct {
	GitHub       GitHubConfig   `mapstructure:"github" yaml:"github"`
	SourcePrefix string         `mapstructure:"source_prefix" yaml:"source_prefix"`
	Store        StoreConfig    `mapstructure:"store" yaml:"store"`
	Tracking     TrackingConfig `mapstructure:"tracking" yaml:"tracking"`
	Author       AuthorConfig   `mapstructure:"author" yaml:"author"`
	Logging      LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Format       string         `mapstructure:"format" yaml:"format"`
}

// GitHubConfig holds API access settings.
type GitHubConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
	WebURL string `mapstructure:"web_url" yaml:"web_url"`
}

// StoreConfig selects and configures the records backend.
type StoreConfig struct {
	Backend         string `mapstructure:"backend" yaml:"backend"`
	Dir             string `mapstructure:"dir" yaml:"dir"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	RecordsBranch   string `mapstructure:"records_branch" yaml:"records_branch"`
	MaxRetries      int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// TrackingConfig controls the central report repository.
type TrackingConfig struct {
	Workflow     string `mapstructure:"workflow" yaml:"workflow"`
	Ref          string `mapstructure:"ref" yaml:"ref"`
	ReportBranch string `mapstructure:"report_branch" yaml:"report_branch"`
}

// AuthorConfig is the commit identity used for records and reports.
type AuthorConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Email string `mapstructure:"email" yaml:"email"`
}

// LoggingConfig controls the run logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
			WebURL: "https://github.com",
		},
		Store: StoreConfig{
			Backend:       "github",
			RecordsBranch: "records",
			MaxRetries:    3,
		},
		Tracking: TrackingConfig{
			Workflow:     "main.yml",
			Ref:          "main",
			ReportBranch: "main",
		},
		Author: AuthorConfig{
			Name:  "covtrack",
			Email: "covtrack@users.noreply.github.com",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Format:  "text",
	}
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("github.token", d.GitHub.Token)
	v.SetDefault("github.api_url", d.GitHub.APIURL)
	v.SetDefault("github.web_url", d.GitHub.WebURL)
	v.SetDefault("source_prefix", d.SourcePrefix)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.bucket", d.Store.Bucket)
	v.SetDefault("store.prefix", d.Store.Prefix)
	v.SetDefault("store.credentials_file", d.Store.CredentialsFile)
	v.SetDefault("store.records_branch", d.Store.RecordsBranch)
	v.SetDefault("store.max_retries", d.Store.MaxRetries)
	v.SetDefault("tracking.workflow", d.Tracking.Workflow)
	v.SetDefault("tracking.ref", d.Tracking.Ref)
	v.SetDefault("tracking.report_branch", d.Tracking.ReportBranch)
	v.SetDefault("author.name", d.Author.Name)
	v.SetDefault("author.email", d.Author.Email)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("format", d.Format)
}

// Load builds the effective config by merging:
// defaults <- file <- env <- overrides.
// If configPath is empty, .covtrack.yaml is searched in the working directory
// and $HOME; a missing file is not an error. The overrides map comes from CLI
// flags, keyed by dotted config key; only flags the user set should appear.
func Load(configPath string, overrides map[string]any) (Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github.token", envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("binding token env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values outside the known sets.
func (c Config) Validate() error {
	if !slices.Contains(backends, c.Store.Backend) {
		return fmt.Errorf("%w %q (expected one of %s)", ErrInvalidBackend, c.Store.Backend, strings.Join(backends, ", "))
	}
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("%w %q (expected one of %s)", ErrInvalidFormat, c.Format, strings.Join(formats, ", "))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w %q (expected one of %s)", ErrInvalidLogLevel, c.Logging.Level, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("%w %q (expected one of %s)", ErrInvalidLogFormat, c.Logging.Format, strings.Join(logFormats, ", "))
	}
	if c.Store.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	return nil
}

// Masked returns a copy safe to print.
func (c Config) Masked() Config {
	if c.GitHub.Token != "" {
		c.GitHub.Token = "****"
	}
	return c
}

// YAML renders the config as a YAML document.
func (c Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Init writes the default config to path. An existing file is never
// overwritten.
func Init(path string) error {
	data, err := Default().YAML()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return fmt.Errorf("creating config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing config file: %w", err)
	}
	return f.Close()
}
