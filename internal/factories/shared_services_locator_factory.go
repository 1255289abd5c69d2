package factories

import (
	"github.com/AnotherFullstackDev/stack-ctl/internal/config"
	"github.com/AnotherFullstackDev/stack-ctl/internal/engine"
	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/AnotherFullstackDev/stack-ctl/internal/placeholders"
)

type SharedServicesLocator struct {
	Config                     *config.Config
	Engine                     engine.Engine
	RegistryCredentialsStorage lib.CredentialsStorage
	PlaceholdersService        *placeholders.Service
}

func NewSharedServicesLocator(config *config.Config, containerEngine engine.Engine, registryCredentialsStorage lib.CredentialsStorage, placeholders *placeholders.Service) *SharedServicesLocator {
	return &SharedServicesLocator{
		config,
		containerEngine,
		registryCredentialsStorage,
		placeholders,
	}
}

func (l *SharedServicesLocator) WithConfig(config *config.Config) *SharedServicesLocator {
	return &SharedServicesLocator{
		config,
		l.Engine,
		l.RegistryCredentialsStorage,
		l.PlaceholdersService,
	}
}
