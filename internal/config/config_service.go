package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
)

const DefaultConfigFile = "stackctl.yaml"

// Config is the raw view of a stack file. Service entries keep their typed
// parts (runtime, container, proxy, ...) in Extras and consumers unmarshal
// the part they own via LoadVariableServiceConfigPart.
type Config struct {
	Stack    string                   `mapstructure:"stack"`
	Services map[string]ServiceConfig `mapstructure:"services"`
	v        *viper.Viper
}

type ServiceConfig struct {
	Environments map[string]EnvironmentConfig `mapstructure:"environments"`
	Extras       map[string]any               `mapstructure:",remain"`
}

type EnvironmentConfig struct {
	Extras map[string]any `mapstructure:",remain"`
}

func newConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.v = v
	return &cfg, nil
}

func NewConfigFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return newConfigFromViper(v)
}

func NewConfigFromReader(reader io.Reader) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(reader); err != nil {
		return nil, fmt.Errorf("reading config from reader: %w", err)
	}

	return newConfigFromViper(v)
}

// WithEnvironment returns a copy of the config with every service's
// environments.<env> section merged over the service's base settings.
// Services without the requested environment are an error so a typo cannot
// silently deploy base values.
func (c *Config) WithEnvironment(env string) (*Config, error) {
	newV := viper.New()

	if err := newV.MergeConfigMap(c.v.AllSettings()); err != nil {
		return nil, fmt.Errorf("merging config map from global config instance: %w", err)
	}

	envConfig := map[string]any{
		"services": map[string]any{},
	}
	for k, service := range c.Services {
		envPart, ok := service.Environments[env]
		if !ok {
			return nil, fmt.Errorf("environment '%s' not found in config", env)
		}
		envConfig["services"].(map[string]any)[k] = envPart.Extras
	}
	if err := newV.MergeConfigMap(envConfig); err != nil {
		return nil, fmt.Errorf("merging environment config map: %w", err)
	}

	var cfg Config
	if err := newV.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config with environment: %w", err)
	}

	cfg.v = newV
	return &cfg, nil
}

func (c *Config) LoadVariableServiceConfigPart(cfg any, service, partKey string, extraKeys ...string) error {
	keyParts := []string{"services", service, partKey}
	if len(extraKeys) > 0 {
		keyParts = append(keyParts, extraKeys...)
	}
	key := strings.Join(keyParts, ".")
	if !c.v.IsSet(key) {
		return fmt.Errorf("config part '%s' not found for service %s", partKey, service)
	}

	if err := c.v.UnmarshalKey(key, cfg); err != nil {
		return fmt.Errorf("unmarshaling config part '%s': %w", partKey, err)
	}

	return nil
}

// HasServiceConfigPart reports whether a service declares the given typed part.
func (c *Config) HasServiceConfigPart(service, partKey string) bool {
	return c.v.IsSet(strings.Join([]string{"services", service, partKey}, "."))
}

// LoadConfigPart unmarshals a top-level key (networks, volumes, proxy, ...).
// Missing keys are not an error; the zero value of cfg is kept.
func (c *Config) LoadConfigPart(cfg any, key string) error {
	if !c.v.IsSet(key) {
		return nil
	}

	if err := c.v.UnmarshalKey(key, cfg); err != nil {
		return fmt.Errorf("unmarshaling config key '%s': %w", key, err)
	}

	return nil
}
