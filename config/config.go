// Package config loads the nearflow configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"

	"nearflow/kv"
	"nearflow/near"
)

const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageBadger = "badger"
)

// Environment variables that override the file.
const (
	EnvLogLevel    = "NEARFLOW_LOG_LEVEL"
	EnvStoragePath = "NEARFLOW_STORAGE_PATH"
	EnvOpenAIKey   = "OPENAI_API_KEY"
)

// Config holds all nearflow configuration.
type Config struct {
	LogLevel string         `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	Networks []near.Network `yaml:"networks" validate:"dive"`
	RPC      RPCConfig      `yaml:"rpc"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
}

// RPCConfig tunes the NEAR JSON-RPC client.
type RPCConfig struct {
	Retries         uint64        `yaml:"retries"`
	RetryWait       time.Duration `yaml:"retry_wait"`
	RetryMultiplier float64       `yaml:"retry_multiplier" validate:"gte=1"`
	Timeout         time.Duration `yaml:"timeout"`
}

// StorageConfig selects the key-value store behind checkpoints and kv nodes.
type StorageConfig struct {
	Type string `yaml:"type" validate:"oneof=memory file badger"`
	Path string `yaml:"path" validate:"required_unless=Type memory"`
}

type ServerConfig struct {
	Listen string `yaml:"listen" validate:"required,hostname_port"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		RPC: RPCConfig{
			Retries:         near.DefaultRetries,
			RetryWait:       near.DefaultRetryWait,
			RetryMultiplier: near.DefaultRetryMultiplier,
			Timeout:         30 * time.Second,
		},
		Storage: StorageConfig{Type: StorageMemory},
		Server:  ServerConfig{Listen: "127.0.0.1:8080"},
		OpenAI:  OpenAIConfig{Model: openai.GPT3Dot5Turbo},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path only applies the overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = strings.ToLower(level)
	}
	if path := os.Getenv(EnvStoragePath); path != "" {
		c.Storage.Path = path
	}
	if key := os.Getenv(EnvOpenAIKey); key != "" {
		c.OpenAI.APIKey = key
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs *multierror.Error

	err := validate.Struct(c)
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			errs = multierror.Append(errs, fmt.Errorf("%s: invalid value %q (%s)", fieldPath(fe), fmt.Sprint(fe.Value()), fe.Tag()))
		}
	case err != nil:
		errs = multierror.Append(errs, err)
	}

	if c.RPC.RetryWait < 0 {
		errs = multierror.Append(errs, fmt.Errorf("rpc.retry_wait: must not be negative"))
	}
	if c.RPC.Timeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("rpc.timeout: must not be negative"))
	}

	seen := make(map[string]struct{}, len(c.Networks))
	for _, network := range c.Networks {
		if _, ok := seen[network.NetworkID]; ok {
			errs = multierror.Append(errs, fmt.Errorf("networks: duplicate network %q", network.NetworkID))
		}
		seen[network.NetworkID] = struct{}{}
	}

	return errs.ErrorOrNil()
}

// fieldPath turns Config.storage.path into storage.path.
func fieldPath(fe validator.FieldError) string {
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	return path
}

// Logger builds the root logger writing to out at the configured level.
func (c *Config) Logger(out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("could not parse log level: %w", err)
	}
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	return zerolog.New(out).With().Timestamp().Logger().Level(level), nil
}

// Connector builds the NEAR connector with the built-in and configured networks.
func (c *Config) Connector(log zerolog.Logger) *near.Connector {
	return near.NewConnector(near.ConnectorConfig{
		Networks:        near.NewNetworkRegistry(c.Networks...),
		HTTPClient:      &http.Client{Timeout: c.RPC.Timeout},
		Retries:         c.RPC.Retries,
		RetryWait:       c.RPC.RetryWait,
		RetryMultiplier: c.RPC.RetryMultiplier,
		Logger:          log,
	})
}

// OpenStore opens the configured key-value store.
func (c *Config) OpenStore() (kv.KVStore, error) {
	switch c.Storage.Type {
	case StorageMemory, "":
		return kv.NewInMemoryKVStore(), nil
	case StorageFile:
		return kv.NewFileBasedKVStore(c.Storage.Path)
	case StorageBadger:
		return kv.NewBadgerKVStore(c.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
}

// OpenAIClient returns nil when no API key is configured, which makes LLM
// nodes answer with mock responses.
func (c *Config) OpenAIClient() *openai.Client {
	if c.OpenAI.APIKey == "" {
		return nil
	}
	conf := openai.DefaultConfig(c.OpenAI.APIKey)
	if c.OpenAI.BaseURL != "" {
		conf.BaseURL = c.OpenAI.BaseURL
	}
	return openai.NewClientWithConfig(conf)
}
