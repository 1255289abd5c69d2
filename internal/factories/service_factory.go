package factories

import (
	"fmt"
	"path/filepath"

	"github.com/AnotherFullstackDev/stack-ctl/internal/build/pipeline"
	"github.com/AnotherFullstackDev/stack-ctl/internal/config"
	"github.com/AnotherFullstackDev/stack-ctl/internal/container_image"
	"github.com/AnotherFullstackDev/stack-ctl/internal/container_image/registry"
	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/AnotherFullstackDev/stack-ctl/internal/placeholders"
	"github.com/AnotherFullstackDev/stack-ctl/internal/proxy"
	"github.com/AnotherFullstackDev/stack-ctl/internal/stack"
)

// ServiceFactory wires the per-service build machinery: the image service
// with its registry, pipeline and, for proxy tiers, the rendered nginx
// config baked into the runtime stage.
type ServiceFactory struct {
	service                    string
	config                     *config.Config
	registryCredentialsStorage lib.CredentialsStorage
	placeholdersService        *placeholders.Service
}

func NewServiceFactory(service string, locator *SharedServicesLocator) *ServiceFactory {
	return &ServiceFactory{
		service:                    service,
		config:                     locator.Config,
		registryCredentialsStorage: locator.RegistryCredentialsStorage,
		placeholdersService:        locator.PlaceholdersService,
	}
}

func (f *ServiceFactory) NewImageService() (*container_image.Service, error) {
	var imageConfig container_image.Config
	if err := f.config.LoadVariableServiceConfigPart(&imageConfig, f.service, stack.ContainerPartKey); err != nil {
		return nil, fmt.Errorf("error loading image build config: %w", err)
	}

	containerRegistry, err := f.newRegistry(imageConfig)
	if err != nil {
		return nil, err
	}

	var pipelineRunner container_image.PipelineRunner
	if imageConfig.Build.Pipeline != nil {
		pipelineService, err := f.newPipelineService(imageConfig)
		if err != nil {
			return nil, err
		}
		pipelineRunner = pipelineService
	}

	return container_image.NewService(imageConfig, containerRegistry, f.placeholdersService, pipelineRunner), nil
}

// BuildDir reports the service's build context directory, or "" when the
// service has no build config.
func (f *ServiceFactory) BuildDir() (string, error) {
	if !f.config.HasServiceConfigPart(f.service, stack.ContainerPartKey) {
		return "", nil
	}

	var imageConfig container_image.Config
	if err := f.config.LoadVariableServiceConfigPart(&imageConfig, f.service, stack.ContainerPartKey); err != nil {
		return "", fmt.Errorf("error loading image build config: %w", err)
	}

	return imageConfig.Build.Dir, nil
}

func (f *ServiceFactory) newRegistry(imageConfig container_image.Config) (registry.Registry, error) {
	switch {
	case imageConfig.Registry.Ghcr != nil:
		resolvedGhcr, err := f.placeholdersService.ResolvePlaceholders(string(*imageConfig.Registry.Ghcr))
		if err != nil {
			return nil, fmt.Errorf("resolving GHCR registry placeholder: %w", err)
		}

		return registry.NewGithubContainerRegistry(f.registryCredentialsStorage, registry.GithubContainerRegistryConfig(resolvedGhcr), []string{
			lib.GHCRAccessKeyEnv,
			lib.GithubTokenEnv,
		}), nil
	case imageConfig.Registry.AWSEcr != nil:
		resolvedEcr, err := f.placeholdersService.ResolvePlaceholders(string(*imageConfig.Registry.AWSEcr))
		if err != nil {
			return nil, fmt.Errorf("resolving AWS ECR registry placeholder: %w", err)
		}

		return registry.NewAwsECR(registry.AwsECRConfig(resolvedEcr)), nil
	case imageConfig.Registry.Gcp != nil:
		resolvedGcp, err := f.placeholdersService.ResolvePlaceholders(string(*imageConfig.Registry.Gcp))
		if err != nil {
			return nil, fmt.Errorf("resolving GCP registry placeholder: %w", err)
		}

		return registry.NewGcpArtifactRegistry(registry.GcpArtifactRegistryConfig(resolvedGcp)), nil
	default:
		// push is optional for local-only stacks
		return nil, nil
	}
}

func (f *ServiceFactory) newPipelineService(imageConfig container_image.Config) (*pipeline.Service, error) {
	contextDir := imageConfig.Build.Dir
	if contextDir == "" {
		return nil, fmt.Errorf("%w - pipeline build for service '%s' needs 'build.dir'", lib.BadUserInputError, f.service)
	}
	contextDir = filepath.Clean(contextDir)

	pipelineService := pipeline.NewService(*imageConfig.Build.Pipeline, contextDir, f.placeholdersService)

	// proxy tiers get their rendered nginx server block baked into the
	// runtime image
	if f.config.HasServiceConfigPart(f.service, stack.ProxyPartKey) {
		var proxyConfig proxy.Config
		if err := f.config.LoadVariableServiceConfigPart(&proxyConfig, f.service, stack.ProxyPartKey); err != nil {
			return nil, fmt.Errorf("error loading proxy config: %w", err)
		}

		rendered, err := proxyConfig.Render()
		if err != nil {
			return nil, fmt.Errorf("rendering proxy config for service '%s': %w", f.service, err)
		}

		pipelineService = pipelineService.WithRuntimeFile(proxy.DefaultConfPath, rendered)
	}

	return pipelineService, nil
}
