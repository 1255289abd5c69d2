package container_image

import (
	"github.com/AnotherFullstackDev/stack-ctl/internal/build/pipeline"
	"github.com/AnotherFullstackDev/stack-ctl/internal/container_image/registry"
)

// BuildConfig picks the build strategy: a two stage pipeline or a raw
// command run in the service directory. Exactly one should be set.
type BuildConfig struct {
	Cmd      []string          `mapstructure:"cmd"`
	Pipeline *pipeline.Config  `mapstructure:"pipeline"`
	Env      map[string]string `mapstructure:"env"`
	Dir      string            `mapstructure:"dir"`
}

type Config struct {
	Image    string         `mapstructure:"image"`
	Build    BuildConfig    `mapstructure:"build"`
	Registry RegistryConfig `mapstructure:"registry"`
}

type RegistryConfig struct {
	Ghcr   *registry.GithubContainerRegistryConfig `mapstructure:"ghcr"`
	AWSEcr *registry.AwsECRConfig                  `mapstructure:"aws_ecr"`
	Gcp    *registry.GcpArtifactRegistryConfig     `mapstructure:"gcp"`
}
