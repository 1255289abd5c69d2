package factories

import (
	"fmt"

	"github.com/AnotherFullstackDev/stack-ctl/internal/doctor"
	"github.com/AnotherFullstackDev/stack-ctl/internal/orchestrator"
	"github.com/AnotherFullstackDev/stack-ctl/internal/stack"
)

// StackFactory wires the stack-wide machinery: the validated spec, the
// orchestrator driving the engine and the doctor diagnostics.
type StackFactory struct {
	locator *SharedServicesLocator
}

func NewStackFactory(locator *SharedServicesLocator) *StackFactory {
	return &StackFactory{locator: locator}
}

// NewSpec loads and validates the stack spec.
func (f *StackFactory) NewSpec() (*stack.Spec, error) {
	loader := stack.NewLoader(f.locator.Config, f.locator.PlaceholdersService)

	spec, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading stack spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("validating stack spec:\n%w", err)
	}

	return spec, nil
}

func (f *StackFactory) NewOrchestrator() (*orchestrator.Service, *stack.Spec, error) {
	spec, err := f.NewSpec()
	if err != nil {
		return nil, nil, err
	}

	return orchestrator.NewService(spec, f.locator.Engine), spec, nil
}

func (f *StackFactory) NewDoctor() (*doctor.Service, error) {
	spec, err := f.NewSpec()
	if err != nil {
		return nil, err
	}

	buildDirs := map[string]string{}
	for _, service := range spec.ServiceNames() {
		serviceFactory := NewServiceFactory(service, f.locator)
		dir, err := serviceFactory.BuildDir()
		if err != nil {
			return nil, err
		}
		if dir != "" {
			buildDirs[service] = dir
		}
	}

	return doctor.NewService(spec, f.locator.Engine, buildDirs), nil
}
