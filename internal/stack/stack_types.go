package stack

import (
	"time"

	"github.com/AnotherFullstackDev/stack-ctl/internal/proxy"
)

type RestartPolicy string

const (
	RestartNo            RestartPolicy = "no"
	RestartAlways        RestartPolicy = "always"
	RestartOnFailure     RestartPolicy = "on-failure"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

type DependsCondition string

const (
	ConditionServiceStarted DependsCondition = "service_started"
	ConditionServiceHealthy DependsCondition = "service_healthy"
)

// Healthcheck describes how readiness of a service is probed. Exactly one of
// Cmd (argv executed inside the container) or HTTP (URL polled from the
// host) must be set.
type Healthcheck struct {
	Cmd         []string      `mapstructure:"cmd" yaml:"cmd,omitempty"`
	HTTP        string        `mapstructure:"http" yaml:"http,omitempty"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval,omitempty"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
	Retries     int           `mapstructure:"retries" yaml:"retries,omitempty"`
	StartPeriod time.Duration `mapstructure:"start_period" yaml:"start_period,omitempty"`
}

const (
	DefaultHealthInterval = 10 * time.Second
	DefaultHealthTimeout  = 5 * time.Second
	DefaultHealthRetries  = 5
)

// WithDefaults returns a copy with unset probe parameters filled in.
func (h Healthcheck) WithDefaults() Healthcheck {
	if h.Interval <= 0 {
		h.Interval = DefaultHealthInterval
	}
	if h.Timeout <= 0 {
		h.Timeout = DefaultHealthTimeout
	}
	if h.Retries <= 0 {
		h.Retries = DefaultHealthRetries
	}
	return h
}

// ServiceSpec is the runtime shape of one service: the part of the stack
// file the orchestrator acts on. Build settings live in the separate
// 'container' part consumed by the image service.
//
// Environment entries are NAME=value strings, not a mapping: the config
// layer lowercases mapping keys, which would mangle variable names.
type ServiceSpec struct {
	Name          string            `mapstructure:"-" yaml:"-"`
	Image         string            `mapstructure:"image" yaml:"image,omitempty"`
	ContainerName string            `mapstructure:"container_name" yaml:"container_name,omitempty"`
	Ports         []string          `mapstructure:"ports" yaml:"ports,omitempty"`
	Environment   []string          `mapstructure:"environment" yaml:"environment,omitempty"`
	EnvFile       string            `mapstructure:"env_file" yaml:"env_file,omitempty"`
	Volumes       []string          `mapstructure:"volumes" yaml:"volumes,omitempty"`
	Networks      []string          `mapstructure:"networks" yaml:"networks,omitempty"`
	Command       []string          `mapstructure:"command" yaml:"command,omitempty"`
	Restart       RestartPolicy     `mapstructure:"restart" yaml:"restart,omitempty"`
	DependsOn     map[string]DependsCondition `mapstructure:"depends_on" yaml:"depends_on,omitempty"`
	Healthcheck   *Healthcheck      `mapstructure:"healthcheck" yaml:"healthcheck,omitempty"`

	// HasBuild records whether the service declares a 'container' build part.
	HasBuild bool `mapstructure:"-" yaml:"-"`
	// Proxy is set for services carrying a reverse-proxy part.
	Proxy *proxy.Config `mapstructure:"-" yaml:"proxy,omitempty"`
	// Seed is set for services carrying a one-shot seed part.
	Seed *SeedSpec `mapstructure:"-" yaml:"seed,omitempty"`
}

// SeedSpec declares a one-shot command that receives a file on stdin inside
// the running container, the walkthrough's database seed step.
type SeedSpec struct {
	Cmd  []string `mapstructure:"cmd" yaml:"cmd"`
	File string   `mapstructure:"file" yaml:"file,omitempty"`
}

type NetworkSpec struct {
	Driver string `mapstructure:"driver" yaml:"driver,omitempty"`
}

type VolumeSpec struct {
	Driver string `mapstructure:"driver" yaml:"driver,omitempty"`
}

// Spec is the full typed stack: every declared service plus the named
// volumes and bridge networks they attach to.
type Spec struct {
	Name     string                 `yaml:"stack"`
	Services map[string]ServiceSpec `yaml:"services"`
	Networks map[string]NetworkSpec `yaml:"networks,omitempty"`
	Volumes  map[string]VolumeSpec  `yaml:"volumes,omitempty"`
}

// ContainerName returns the engine-side container name for a service,
// honoring an explicit container_name override.
func (s *Spec) ContainerName(service string) string {
	svc, ok := s.Services[service]
	if ok && svc.ContainerName != "" {
		return svc.ContainerName
	}
	return s.Name + "-" + service
}

// DefaultNetwork returns the first declared network name in lexical order,
// or empty when the stack declares none.
func (s *Spec) DefaultNetwork() string {
	name := ""
	for n := range s.Networks {
		if name == "" || n < name {
			name = n
		}
	}
	return name
}
