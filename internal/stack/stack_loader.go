package stack

import (
	"fmt"
	"sort"

	"github.com/AnotherFullstackDev/stack-ctl/internal/config"
	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/AnotherFullstackDev/stack-ctl/internal/placeholders"
	"github.com/AnotherFullstackDev/stack-ctl/internal/proxy"
	"gopkg.in/yaml.v3"
)

const (
	RuntimePartKey   = "runtime"
	ContainerPartKey = "container"
	ProxyPartKey     = "proxy"
	SeedPartKey      = "seed"

	defaultStackName = "stack"
)

type Loader struct {
	config       *config.Config
	placeholders *placeholders.Service
}

func NewLoader(cfg *config.Config, placeholdersService *placeholders.Service) *Loader {
	return &Loader{
		config:       cfg,
		placeholders: placeholdersService,
	}
}

// Load materializes the typed stack spec from the raw config, resolving
// placeholders in image references, environment values and commands.
func (l *Loader) Load() (*Spec, error) {
	spec := &Spec{
		Name:     l.config.Stack,
		Services: make(map[string]ServiceSpec, len(l.config.Services)),
		Networks: map[string]NetworkSpec{},
		Volumes:  map[string]VolumeSpec{},
	}
	if spec.Name == "" {
		spec.Name = defaultStackName
	}

	if err := l.config.LoadConfigPart(&spec.Networks, "networks"); err != nil {
		return nil, fmt.Errorf("loading networks: %w", err)
	}
	if err := l.config.LoadConfigPart(&spec.Volumes, "volumes"); err != nil {
		return nil, fmt.Errorf("loading volumes: %w", err)
	}

	stackResolvers := map[string]placeholders.PlaceholderResolver{
		"stack.name": func() (string, error) {
			return spec.Name, nil
		},
		"stack.network": func() (string, error) {
			network := spec.DefaultNetwork()
			if network == "" {
				return "", fmt.Errorf("%w - placeholder 'stack.network' used but the stack declares no networks", lib.BadUserInputError)
			}
			return network, nil
		},
	}

	for name := range l.config.Services {
		if !l.config.HasServiceConfigPart(name, RuntimePartKey) {
			return nil, fmt.Errorf("%w - service '%s' has no '%s' section", lib.BadUserInputError, name, RuntimePartKey)
		}

		var svc ServiceSpec
		if err := l.config.LoadVariableServiceConfigPart(&svc, name, RuntimePartKey); err != nil {
			return nil, fmt.Errorf("loading runtime config for service %s: %w", name, err)
		}

		svc.Name = name
		svc.HasBuild = l.config.HasServiceConfigPart(name, ContainerPartKey)

		// a build service runs the image its container part produces unless
		// the runtime pins a different one
		if svc.Image == "" && svc.HasBuild {
			var containerPart struct {
				Image string `mapstructure:"image"`
			}
			if err := l.config.LoadVariableServiceConfigPart(&containerPart, name, ContainerPartKey); err != nil {
				return nil, fmt.Errorf("loading container config for service %s: %w", name, err)
			}
			svc.Image = containerPart.Image
		}

		if err := l.resolveServicePlaceholders(&svc, stackResolvers); err != nil {
			return nil, fmt.Errorf("service %s: %w", name, err)
		}

		if l.config.HasServiceConfigPart(name, ProxyPartKey) {
			var proxyCfg proxy.Config
			if err := l.config.LoadVariableServiceConfigPart(&proxyCfg, name, ProxyPartKey); err != nil {
				return nil, fmt.Errorf("loading proxy config for service %s: %w", name, err)
			}
			svc.Proxy = &proxyCfg
		}

		if l.config.HasServiceConfigPart(name, SeedPartKey) {
			var seed SeedSpec
			if err := l.config.LoadVariableServiceConfigPart(&seed, name, SeedPartKey); err != nil {
				return nil, fmt.Errorf("loading seed config for service %s: %w", name, err)
			}
			svc.Seed = &seed
		}

		spec.Services[name] = svc
	}

	return spec, nil
}

func (l *Loader) resolveServicePlaceholders(svc *ServiceSpec, extra map[string]placeholders.PlaceholderResolver) error {
	resolved, err := l.placeholders.ResolvePlaceholders(svc.Image, extra)
	if err != nil {
		return fmt.Errorf("resolving placeholders in image '%s': %w", svc.Image, err)
	}
	svc.Image = resolved

	for i, env := range svc.Environment {
		resolved, err := l.placeholders.ResolvePlaceholders(env, extra)
		if err != nil {
			return fmt.Errorf("resolving placeholders in environment entry '%s': %w", env, err)
		}
		svc.Environment[i] = resolved
	}

	for i, part := range svc.Command {
		resolved, err := l.placeholders.ResolvePlaceholders(part, extra)
		if err != nil {
			return fmt.Errorf("resolving placeholders in command part '%s': %w", part, err)
		}
		svc.Command[i] = resolved
	}

	return nil
}

// RenderYAML marshals the effective spec (post environment overlay and
// placeholder resolution) with services in stable order.
func (s *Spec) RenderYAML() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling stack spec: %w", err)
	}
	return string(out), nil
}

// ServiceNames returns the declared service names in lexical order.
func (s *Spec) ServiceNames() []string {
	names := make([]string, 0, len(s.Services))
	for name := range s.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
