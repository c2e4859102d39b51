package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/consoleroutes/internal/console"
	"github.com/vango-dev/consoleroutes/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "consoleroutes.json"

	// DefaultPort is the default history server port.
	DefaultPort = 8080

	// DefaultHost is the default history server host.
	DefaultHost = "localhost"

	// DefaultShell is the SPA entry document served for matched paths.
	DefaultShell = "dist/index.html"

	// DefaultStatic is the directory served under /static/.
	DefaultStatic = "dist/static"

	// DefaultMetricsNamespace prefixes every exported metric.
	DefaultMetricsNamespace = "consoleroutes"

	// DefaultMetricsPath is where the Prometheus handler is mounted.
	DefaultMetricsPath = "/metrics"
)

// Config represents consoleroutes.json.
type Config struct {
	// Server configures the history-mode HTTP server.
	Server ServerConfig `json:"server"`

	// Routes selects where the route declaration comes from.
	Routes RoutesConfig `json:"routes"`

	// Metrics configures Prometheus navigation metrics.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing configures OpenTelemetry navigation spans.
	Tracing TracingConfig `json:"tracing"`

	configPath string
}

// ServerConfig contains history server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// Shell is the SPA entry document.
	Shell string `json:"shell,omitempty"`

	// Static is the asset directory served under /static/.
	Static string `json:"static,omitempty"`

	// ReadTimeout closes navigation connections idle for longer than
	// this duration ("90s", "5m"). Empty means no limit.
	ReadTimeout string `json:"readTimeout,omitempty"`

	// AllowedOrigins are extra origins allowed to open the navigation
	// WebSocket. Same-origin requests are always allowed.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// RoutesConfig selects and tunes the route table.
type RoutesConfig struct {
	// Variant names the built-in console declaration. Ignored when
	// Manifest is set.
	Variant string `json:"variant,omitempty"`

	// Manifest is a YAML/JSON route manifest: a file path or an
	// s3://bucket/key URL.
	Manifest string `json:"manifest,omitempty"`

	CaseSensitive        bool `json:"caseSensitive,omitempty"`
	RootRelativeChildren bool `json:"rootRelativeChildren,omitempty"`

	// Watch reloads a file manifest when it changes on disk.
	Watch bool `json:"watch,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Path      string `json:"path,omitempty"`
}

// TracingConfig contains OpenTelemetry settings. Spans go to the global
// tracer provider.
type TracingConfig struct {
	Enabled bool `json:"enabled,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:   DefaultHost,
			Port:   DefaultPort,
			Shell:  DefaultShell,
			Static: DefaultStatic,
		},
		Routes: RoutesConfig{
			Variant: string(console.VariantSchedule),
		},
		Metrics: MetricsConfig{
			Namespace: DefaultMetricsNamespace,
			Path:      DefaultMetricsPath,
		},
	}
}

// Load reads consoleroutes.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or run without --config to use defaults")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Shell == "" {
		c.Server.Shell = DefaultShell
	}
	if c.Server.Static == "" {
		c.Server.Static = DefaultStatic
	}
	if c.Routes.Variant == "" {
		c.Routes.Variant = string(console.VariantSchedule)
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetail("server.port is " + strconv.Itoa(c.Server.Port))
	}
	if _, err := c.ReadTimeout(); err != nil {
		return errors.Newf(errors.CategoryConfig, "server.readTimeout: %v", err)
	}
	if _, err := console.ParseVariant(c.Routes.Variant); err != nil {
		return errors.New("E121").
			WithDetail(err.Error()).
			WithSuggestion("Use \"schedule\" or \"test\"")
	}
	if m := c.Routes.Manifest; m != "" {
		if _, _, err := c.ManifestLocation(); err != nil {
			return err
		}
		if c.Routes.Watch && strings.HasPrefix(m, "s3://") {
			return errors.New("E123").
				WithDetail("routes.watch only applies to file manifests").
				WithSuggestion("Remove routes.watch or use a local manifest")
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.Newf(errors.CategoryConfig, "metrics.path must start with /")
	}
	return nil
}

// ReadTimeout parses server.readTimeout. Empty yields zero.
func (c *Config) ReadTimeout() (time.Duration, error) {
	if c.Server.ReadTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// Variant returns the configured console variant.
func (c *Config) Variant() console.Variant {
	v, err := console.ParseVariant(c.Routes.Variant)
	if err != nil {
		return console.VariantSchedule
	}
	return v
}

// ManifestLocation splits routes.manifest into an S3 bucket and key, or
// returns an empty bucket and the file path resolved against Dir.
func (c *Config) ManifestLocation() (bucket, key string, err error) {
	m := c.Routes.Manifest
	if !strings.HasPrefix(m, "s3://") {
		if filepath.IsAbs(m) || c.Dir() == "" {
			return "", m, nil
		}
		return "", filepath.Join(c.Dir(), m), nil
	}
	u, perr := url.Parse(m)
	if perr != nil || u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return "", "", errors.New("E123").WithDetail("Cannot parse " + m)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// Address returns host:port for the history server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ShellPath returns the shell document path resolved against Dir.
func (c *Config) ShellPath() string {
	return c.resolve(c.Server.Shell)
}

// StaticPath returns the static directory resolved against Dir.
func (c *Config) StaticPath() string {
	return c.resolve(c.Server.Static)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the directory holding
// consoleroutes.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest project root, or
// returns defaults when none exists.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		if errors.HasCode(err, "E141") {
			return New(), nil
		}
		return nil, err
	}
	return Load(root)
}
