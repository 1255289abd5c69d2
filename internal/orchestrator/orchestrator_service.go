package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/AnotherFullstackDev/stack-ctl/internal/engine"
	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/AnotherFullstackDev/stack-ctl/internal/stack"
)

const (
	startedPollInterval = time.Second
	startedWaitTimeout  = 30 * time.Second
)

// Service is the control loop over a validated stack spec: it brings
// services up in dependency order with health-based gating and tears them
// down in reverse.
type Service struct {
	spec   *stack.Spec
	engine engine.Engine
}

func NewService(spec *stack.Spec, e engine.Engine) *Service {
	return &Service{spec: spec, engine: e}
}

type ServiceStatus struct {
	Service   string
	Container string
	Running   bool
	Status    string
}

// Up walks the startup order. Before starting a service every declared
// dependency is gated: service_started waits for a running container,
// service_healthy waits for the dependency's own healthcheck to pass. The
// first failure aborts the walk; already-started services stay up.
func (s *Service) Up(ctx context.Context) error {
	l := slog.With("context", "orchestrator", "stack", s.spec.Name)

	order, err := s.spec.StartupOrder()
	if err != nil {
		return fmt.Errorf("computing startup order: %w", err)
	}
	l.InfoContext(ctx, "bringing stack up", "order", order)

	for _, network := range sortedKeys(s.spec.Networks) {
		if err := s.engine.EnsureNetwork(ctx, network, s.spec.Networks[network].Driver); err != nil {
			return fmt.Errorf("ensuring network %s: %w", network, err)
		}
	}
	for _, volume := range sortedKeys(s.spec.Volumes) {
		if err := s.engine.EnsureVolume(ctx, volume); err != nil {
			return fmt.Errorf("ensuring volume %s: %w", volume, err)
		}
	}

	for _, name := range order {
		svc := s.spec.Services[name]

		for _, dep := range sortedKeys(svc.DependsOn) {
			if err := s.waitForDependency(ctx, dep, svc.DependsOn[dep]); err != nil {
				return fmt.Errorf("service %s: %w", name, err)
			}
		}

		if err := s.startService(ctx, svc); err != nil {
			return fmt.Errorf("starting service %s: %w", name, err)
		}
	}

	l.InfoContext(ctx, "stack is up", "services", len(order))
	return nil
}

func (s *Service) startService(ctx context.Context, svc stack.ServiceSpec) error {
	container := s.spec.ContainerName(svc.Name)

	state, err := s.engine.InspectContainer(ctx, container)
	if err != nil {
		return fmt.Errorf("inspecting container %s: %w", container, err)
	}
	if state.Exists && state.Running {
		slog.InfoContext(ctx, "container already running, keeping it", "container", container)
		return nil
	}
	if state.Exists {
		// stale stopped container from a previous run
		if err := s.engine.RemoveContainer(ctx, container); err != nil {
			return fmt.Errorf("removing stale container %s: %w", container, err)
		}
	}

	if svc.Image == "" {
		return fmt.Errorf("%w - service '%s' has no runtime image; run 'service build' first or set one", lib.BadUserInputError, svc.Name)
	}

	// the engine's run command attaches a single network; the rest are
	// connected afterwards
	network := ""
	if len(svc.Networks) > 0 {
		network = svc.Networks[0]
	}

	err = s.engine.RunContainer(ctx, engine.RunOptions{
		Name:    container,
		Image:   svc.Image,
		Network: network,
		Alias:   svc.Name,
		Ports:   svc.Ports,
		Env:     svc.Environment,
		EnvFile: svc.EnvFile,
		Volumes: svc.Volumes,
		Restart: string(svc.Restart),
		Command: svc.Command,
	})
	if err != nil {
		return err
	}

	if len(svc.Networks) > 1 {
		for _, extra := range svc.Networks[1:] {
			if err := s.engine.ConnectNetwork(ctx, extra, container, svc.Name); err != nil {
				return fmt.Errorf("connecting to network %s: %w", extra, err)
			}
		}
	}

	return nil
}

func (s *Service) waitForDependency(ctx context.Context, dep string, condition stack.DependsCondition) error {
	switch condition {
	case stack.ConditionServiceStarted, "":
		return s.waitRunning(ctx, dep)
	case stack.ConditionServiceHealthy:
		return s.WaitServiceHealthy(ctx, dep)
	default:
		return fmt.Errorf("%w - unknown depends_on condition '%s'", lib.BadUserInputError, condition)
	}
}

func (s *Service) waitRunning(ctx context.Context, service string) error {
	container := s.spec.ContainerName(service)

	deadline := time.Now().Add(startedWaitTimeout)
	for {
		state, err := s.engine.InspectContainer(ctx, container)
		if err != nil {
			return fmt.Errorf("inspecting container %s: %w", container, err)
		}
		if state.Running {
			return nil
		}
		if state.Exists && !state.Running && state.ExitCode != 0 {
			return fmt.Errorf("dependency %s exited with code %d", service, state.ExitCode)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("dependency %s did not start within %s", service, startedWaitTimeout)
		}
		if err := sleepCtx(ctx, startedPollInterval); err != nil {
			return err
		}
	}
}

// WaitServiceHealthy blocks until the service's own healthcheck passes.
func (s *Service) WaitServiceHealthy(ctx context.Context, service string) error {
	svc, ok := s.spec.Services[service]
	if !ok {
		return fmt.Errorf("%w - unknown service '%s'", lib.BadUserInputError, service)
	}
	if svc.Healthcheck == nil {
		return fmt.Errorf("%w - service '%s' declares no healthcheck", lib.BadUserInputError, service)
	}

	if err := s.waitRunning(ctx, service); err != nil {
		return err
	}

	prober, err := NewProber(s.engine, s.spec.ContainerName(service), *svc.Healthcheck)
	if err != nil {
		return fmt.Errorf("building prober for service %s: %w", service, err)
	}

	return WaitHealthy(ctx, prober, *svc.Healthcheck, service)
}

// Down stops and removes containers in reverse startup order, then removes
// the stack networks. Named volumes survive unless removeVolumes is set, so
// database state outlives restarts by default.
func (s *Service) Down(ctx context.Context, removeVolumes bool) error {
	l := slog.With("context", "orchestrator", "stack", s.spec.Name)

	order, err := s.spec.ShutdownOrder()
	if err != nil {
		return fmt.Errorf("computing shutdown order: %w", err)
	}
	l.InfoContext(ctx, "taking stack down", "order", order)

	for _, name := range order {
		container := s.spec.ContainerName(name)

		state, err := s.engine.InspectContainer(ctx, container)
		if err != nil {
			return fmt.Errorf("inspecting container %s: %w", container, err)
		}
		if !state.Exists {
			continue
		}
		if state.Running {
			if err := s.engine.StopContainer(ctx, container); err != nil {
				return fmt.Errorf("stopping service %s: %w", name, err)
			}
		}
		if err := s.engine.RemoveContainer(ctx, container); err != nil {
			return fmt.Errorf("removing service %s: %w", name, err)
		}
	}

	for _, network := range sortedKeys(s.spec.Networks) {
		if err := s.engine.RemoveNetwork(ctx, network); err != nil {
			return fmt.Errorf("removing network %s: %w", network, err)
		}
	}

	if removeVolumes {
		for _, volume := range sortedKeys(s.spec.Volumes) {
			if err := s.engine.RemoveVolume(ctx, volume); err != nil {
				return fmt.Errorf("removing volume %s: %w", volume, err)
			}
		}
	}

	return nil
}

// Ps reports the container state of every declared service.
func (s *Service) Ps(ctx context.Context) ([]ServiceStatus, error) {
	statuses := make([]ServiceStatus, 0, len(s.spec.Services))
	for _, name := range s.spec.ServiceNames() {
		container := s.spec.ContainerName(name)

		state, err := s.engine.InspectContainer(ctx, container)
		if err != nil {
			return nil, fmt.Errorf("inspecting container %s: %w", container, err)
		}

		status := state.Status
		if !state.Exists {
			status = "not created"
		}
		statuses = append(statuses, ServiceStatus{
			Service:   name,
			Container: container,
			Running:   state.Running,
			Status:    status,
		})
	}
	return statuses, nil
}

// Seed streams the service's seed file into its seed command, gated on the
// service being healthy. fileOverride replaces the configured file when set.
func (s *Service) Seed(ctx context.Context, service, fileOverride string) error {
	svc, ok := s.spec.Services[service]
	if !ok {
		return fmt.Errorf("%w - unknown service '%s'", lib.BadUserInputError, service)
	}
	if svc.Seed == nil {
		return fmt.Errorf("%w - service '%s' declares no seed section", lib.BadUserInputError, service)
	}

	file := svc.Seed.File
	if fileOverride != "" {
		file = fileOverride
	}
	if file == "" {
		return fmt.Errorf("%w - no seed file configured for service '%s'", lib.BadUserInputError, service)
	}

	if svc.Healthcheck != nil {
		if err := s.WaitServiceHealthy(ctx, service); err != nil {
			return fmt.Errorf("waiting for service %s before seeding: %w", service, err)
		}
	} else if err := s.waitRunning(ctx, service); err != nil {
		return fmt.Errorf("waiting for service %s before seeding: %w", service, err)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	slog.InfoContext(ctx, "seeding service", "service", service, "file", file)

	container := s.spec.ContainerName(service)
	if err := s.engine.Exec(ctx, container, svc.Seed.Cmd, f, os.Stdout, os.Stderr); err != nil {
		return fmt.Errorf("seeding service %s: %w", service, err)
	}
	return nil
}

// Exec runs a command inside the service's container with the caller's
// stdio attached.
func (s *Service) Exec(ctx context.Context, service string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if _, ok := s.spec.Services[service]; !ok {
		return fmt.Errorf("%w - unknown service '%s'", lib.BadUserInputError, service)
	}
	if len(cmd) == 0 {
		return fmt.Errorf("%w - no command provided", lib.BadUserInputError)
	}
	container := s.spec.ContainerName(service)
	state, err := s.engine.InspectContainer(ctx, container)
	if err != nil {
		return fmt.Errorf("inspecting container %s: %w", container, err)
	}
	if !state.Running {
		return fmt.Errorf("service '%s' is not running, run 'stack up' first", service)
	}

	return s.engine.Exec(ctx, container, cmd, stdin, stdout, stderr)
}

// Logs streams logs of the given services, or of the whole stack when none
// are named. Following is limited to a single service because the engine
// call blocks.
func (s *Service) Logs(ctx context.Context, services []string, follow bool, out io.Writer) error {
	if len(services) == 0 {
		services = s.spec.ServiceNames()
	}
	if follow && len(services) > 1 {
		return fmt.Errorf("%w - --follow works with a single service", lib.BadUserInputError)
	}

	for _, service := range services {
		if _, ok := s.spec.Services[service]; !ok {
			return fmt.Errorf("%w - unknown service '%s'", lib.BadUserInputError, service)
		}
		if err := s.engine.Logs(ctx, s.spec.ContainerName(service), follow, out); err != nil {
			return fmt.Errorf("logs of service %s: %w", service, err)
		}
	}
	return nil
}

// Stats prints a resource usage snapshot for the stack's containers.
func (s *Service) Stats(ctx context.Context, out io.Writer) error {
	containers := make([]string, 0, len(s.spec.Services))
	for _, name := range s.spec.ServiceNames() {
		containers = append(containers, s.spec.ContainerName(name))
	}
	return s.engine.Stats(ctx, containers, out)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
