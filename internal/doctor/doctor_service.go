package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AnotherFullstackDev/stack-ctl/internal/build/buildcontext"
	"github.com/AnotherFullstackDev/stack-ctl/internal/engine"
	"github.com/AnotherFullstackDev/stack-ctl/internal/stack"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one diagnosed problem with a hint on how to fix it.
type Finding struct {
	Service  string
	Check    string
	Severity Severity
	Message  string
}

const (
	CheckLocalhostRefs = "localhost-refs"
	CheckHostPorts     = "host-ports"
	CheckNetworks      = "networks"
	CheckStaleImages   = "stale-images"
)

// Service runs live diagnostics against the engine, covering the failure
// modes static validation cannot see: foreign processes squatting on host
// ports, networks removed behind the tool's back, images built before the
// sources last changed.
type Service struct {
	spec   *stack.Spec
	engine engine.Engine
	// buildDirs maps services with a build config to their context
	// directory, for the stale image check.
	buildDirs map[string]string
}

func NewService(spec *stack.Spec, e engine.Engine, buildDirs map[string]string) *Service {
	return &Service{spec: spec, engine: e, buildDirs: buildDirs}
}

// Diagnose runs all checks and returns the findings sorted by service.
func (s *Service) Diagnose(ctx context.Context) ([]Finding, error) {
	l := slog.With("context", "doctor", "stack", s.spec.Name)
	l.InfoContext(ctx, "running stack diagnostics")

	var findings []Finding
	findings = append(findings, s.checkLocalhostRefs()...)

	portFindings, err := s.checkHostPorts(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, portFindings...)

	networkFindings, err := s.checkNetworks(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, networkFindings...)

	findings = append(findings, s.checkStaleImages(ctx)...)

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Service != findings[j].Service {
			return findings[i].Service < findings[j].Service
		}
		return findings[i].Check < findings[j].Check
	})

	l.InfoContext(ctx, "diagnostics finished", "findings", len(findings))
	return findings, nil
}

// checkLocalhostRefs flags environment URLs pointing at localhost in
// services that depend on other services. Inside a container localhost is
// the container itself, so such a URL almost always should name the
// dependency's service instead.
func (s *Service) checkLocalhostRefs() []Finding {
	var findings []Finding

	for _, name := range s.spec.ServiceNames() {
		svc := s.spec.Services[name]
		if len(svc.DependsOn) == 0 {
			continue
		}

		for _, entry := range svc.Environment {
			key, value, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}

			host := urlHost(value)
			if host != "localhost" && host != "127.0.0.1" {
				continue
			}

			findings = append(findings, Finding{
				Service:  name,
				Check:    CheckLocalhostRefs,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("env var %s points at %s; inside the container that is the container itself, use the dependency's service name", key, host),
			})
		}
	}

	return findings
}

// checkHostPorts probes published host ports with a short listen. A port
// that cannot be bound while the owning container is down is held by a
// foreign process.
func (s *Service) checkHostPorts(ctx context.Context) ([]Finding, error) {
	var findings []Finding

	for _, name := range s.spec.ServiceNames() {
		svc := s.spec.Services[name]
		if len(svc.Ports) == 0 {
			continue
		}

		state, err := s.engine.InspectContainer(ctx, s.spec.ContainerName(name))
		if err != nil {
			return nil, fmt.Errorf("inspecting container for service %s: %w", name, err)
		}
		if state.Running {
			// the port is expected to be taken by the service itself
			continue
		}

		for _, mapping := range svc.Ports {
			hostPort, err := stack.ParsePortMapping(mapping)
			if err != nil || hostPort == 0 {
				// malformed mappings are the validator's job; container-only
				// ports publish nothing on the host
				continue
			}

			listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(hostPort)))
			if err != nil {
				findings = append(findings, Finding{
					Service:  name,
					Check:    CheckHostPorts,
					Severity: SeverityError,
					Message:  fmt.Sprintf("host port %d is taken by another process while the service is down", hostPort),
				})
				continue
			}
			_ = listener.Close()
		}
	}

	return findings, nil
}

func (s *Service) checkNetworks(ctx context.Context) ([]Finding, error) {
	var findings []Finding

	networks := make([]string, 0, len(s.spec.Networks))
	for network := range s.spec.Networks {
		networks = append(networks, network)
	}
	sort.Strings(networks)

	for _, network := range networks {
		exists, err := s.engine.NetworkExists(ctx, network)
		if err != nil {
			return nil, fmt.Errorf("checking network %s: %w", network, err)
		}
		if !exists {
			findings = append(findings, Finding{
				Check:    CheckNetworks,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("network '%s' does not exist yet, 'stack up' will create it", network),
			})
		}
	}

	return findings, nil
}

// checkStaleImages compares the image creation time against the newest
// change in the service's build context.
func (s *Service) checkStaleImages(ctx context.Context) []Finding {
	var findings []Finding

	for _, name := range s.spec.ServiceNames() {
		svc := s.spec.Services[name]
		dir, ok := s.buildDirs[name]
		if !ok || svc.Image == "" {
			continue
		}

		createdAt, err := s.engine.ImageCreatedAt(ctx, svc.Image)
		if err != nil {
			findings = append(findings, Finding{
				Service:  name,
				Check:    CheckStaleImages,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("image '%s' is not present locally, run 'service build %s'", svc.Image, name),
			})
			continue
		}

		buildContext, err := buildcontext.Scan(dir, nil)
		if err != nil {
			slog.WarnContext(ctx, "skipping stale image check", "service", name, "error", err)
			continue
		}

		if buildContext.NewestChange.After(createdAt) {
			findings = append(findings, Finding{
				Service:  name,
				Check:    CheckStaleImages,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("image '%s' was built %s before the sources last changed, run 'service build %s'",
					svc.Image, buildContext.NewestChange.Sub(createdAt).Round(time.Second), name),
			})
		}
	}

	return findings
}

func urlHost(value string) string {
	if !strings.Contains(value, "://") {
		return ""
	}

	// jdbc URLs carry a scheme prefix url.Parse cannot digest
	trimmed := strings.TrimPrefix(value, "jdbc:")

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
