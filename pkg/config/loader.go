package config

import (
	_ "embed"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	provisioerr "github.com/provisio-sh/provisio/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// SystemConfigPath is the host-local override file.
const SystemConfigPath = "/etc/provisio/provisio.toml"

// EnvPrefix namespaces environment overrides, e.g. PROVISIO_RETRY_DELAY.
const EnvPrefix = "PROVISIO_"

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, provisioerr.New(provisioerr.ErrInternal, "raw provider only supports ReadBytes")
}

// Load merges configuration in precedence order: embedded defaults, then
// the system config file (when present), then PROVISIO_* environment
// variables.
func Load() (*Config, error) {
	return LoadFrom(SystemConfigPath)
}

// LoadFrom is Load with an explicit system config path, for tests.
func LoadFrom(systemPath string) (*Config, error) {
	return LoadWithOverrides(systemPath, nil)
}

// LoadWithOverrides layers dot-delimited key overrides (typically from CLI
// flags) on top of the merged configuration. Overrides win over every other
// source.
func LoadWithOverrides(systemPath string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, provisioerr.Wrap(err, provisioerr.ErrConfigParse, "failed to load built-in defaults")
	}

	// 2. Host-local overrides, if any
	if systemPath != "" {
		if _, err := os.Stat(systemPath); err == nil {
			if err := k.Load(file.Provider(systemPath), toml.Parser()); err != nil {
				return nil, provisioerr.Wrapf(err, provisioerr.ErrConfigLoad,
					"failed to load config from %s", systemPath)
			}
		}
	}

	// 3. Environment. Config keys are section.key where the key itself may
	// contain underscores (retry.max_attempts), so only the first
	// underscore separates the section.
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, provisioerr.Wrap(err, provisioerr.ErrConfigLoad, "failed to load environment overrides")
	}

	// 4. Flag-level overrides
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, provisioerr.Wrap(err, provisioerr.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, provisioerr.Wrap(err, provisioerr.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Retry.MaxAttempts < 1 {
		return provisioerr.Newf(provisioerr.ErrConfigValid,
			"retry.max_attempts must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.Delay < 0 {
		return provisioerr.New(provisioerr.ErrConfigValid, "retry.delay must not be negative")
	}
	if cfg.Workdir.Base == "" {
		return provisioerr.New(provisioerr.ErrConfigValid, "workdir.base must not be empty")
	}
	return nil
}
