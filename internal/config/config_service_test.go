package config

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func configToReader(config string) io.Reader {
	return io.NopCloser(strings.NewReader(config))
}

const configYAML = `
stack: webshop
services:
  database:
    runtime:
      image: 'postgres:16-alpine'
      ports:
        - '5432:5432'
    environments:
      dev:
        runtime:
          ports:
            - '15432:5432'
  backend:
    runtime:
      environment:
        - 'SPRING_DATASOURCE_URL=jdbc:postgresql://database:5432/shop'
    container:
      image: 'webshop-backend:latest'
    environments:
      dev:
        runtime:
          show_sql: true
networks:
  webshop-net:
    driver: bridge
`

func TestConfig(t *testing.T) {
	r := require.New(t)

	t.Run("must parse config", func(t *testing.T) {
		cfg, err := NewConfigFromReader(configToReader(configYAML))
		r.NoError(err)
		r.Equal("webshop", cfg.Stack)

		runtime := cfg.Services["database"].Extras["runtime"].(map[string]any)
		r.Equal("postgres:16-alpine", runtime["image"])
	})

	t.Run("must merge environment over base settings", func(t *testing.T) {
		cfg, err := NewConfigFromReader(configToReader(configYAML))
		r.NoError(err)

		cfgWithEnv, err := cfg.WithEnvironment("dev")
		r.NoError(err)

		runtime := cfgWithEnv.Services["database"].Extras["runtime"].(map[string]any)
		r.Equal("postgres:16-alpine", runtime["image"])
		r.Equal([]any{"15432:5432"}, runtime["ports"].([]any))

		backendRuntime := cfgWithEnv.Services["backend"].Extras["runtime"].(map[string]any)
		r.Equal([]any{"SPRING_DATASOURCE_URL=jdbc:postgresql://database:5432/shop"}, backendRuntime["environment"].([]any))
		r.Equal(true, backendRuntime["show_sql"])

		// the base config instance stays untouched
		baseRuntime := cfg.Services["database"].Extras["runtime"].(map[string]any)
		r.Equal([]any{"5432:5432"}, baseRuntime["ports"].([]any))
	})

	t.Run("must fail on unknown environment", func(t *testing.T) {
		cfg, err := NewConfigFromReader(configToReader(configYAML))
		r.NoError(err)

		_, err = cfg.WithEnvironment("staging")
		r.Error(err)
		r.Contains(err.Error(), "staging")
	})

	t.Run("must load typed service config part", func(t *testing.T) {
		cfg, err := NewConfigFromReader(configToReader(configYAML))
		r.NoError(err)

		var container struct {
			Image string `mapstructure:"image"`
		}
		r.True(cfg.HasServiceConfigPart("backend", "container"))
		r.False(cfg.HasServiceConfigPart("database", "container"))
		r.NoError(cfg.LoadVariableServiceConfigPart(&container, "backend", "container"))
		r.Equal("webshop-backend:latest", container.Image)
	})

	t.Run("must load top level config part", func(t *testing.T) {
		cfg, err := NewConfigFromReader(configToReader(configYAML))
		r.NoError(err)

		networks := map[string]map[string]any{}
		r.NoError(cfg.LoadConfigPart(&networks, "networks"))
		r.Contains(networks, "webshop-net")
		r.Equal("bridge", networks["webshop-net"]["driver"])

		volumes := map[string]map[string]any{}
		r.NoError(cfg.LoadConfigPart(&volumes, "volumes"))
		r.Empty(volumes)
	})
}
