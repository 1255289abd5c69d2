package stack

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/google/go-containerregistry/pkg/name"
)

// urlHostRegExp captures the host of URL-shaped environment values,
// including scheme-chained forms like jdbc:postgresql://host:5432/db.
var urlHostRegExp = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.-]*://(?:[^/@\s]*@)?([A-Za-z0-9._-]+)`)

// Validate runs the static consistency checks over the spec. All findings
// are collected before returning so the operator fixes the file in one pass;
// every finding wraps lib.BadUserInputError.
func (s *Spec) Validate() error {
	var errs []error

	hostPortOwners := map[int]string{}

	for _, serviceName := range s.ServiceNames() {
		svc := s.Services[serviceName]
		fail := func(format string, args ...any) {
			prefixed := fmt.Sprintf("service '%s': %s", serviceName, fmt.Sprintf(format, args...))
			errs = append(errs, fmt.Errorf("%w - %s", lib.BadUserInputError, prefixed))
		}

		if svc.Image == "" && !svc.HasBuild {
			fail("declares neither an image nor a '%s' build section", ContainerPartKey)
		}
		if svc.Image != "" {
			if _, err := name.ParseReference(svc.Image); err != nil {
				fail("invalid image reference '%s': %v", svc.Image, err)
			}
		}

		for _, port := range svc.Ports {
			hostPort, err := ParsePortMapping(port)
			if err != nil {
				fail("%v", err)
				continue
			}
			if hostPort == 0 {
				continue
			}
			if owner, taken := hostPortOwners[hostPort]; taken {
				fail("host port %d already mapped by service '%s'", hostPort, owner)
				continue
			}
			hostPortOwners[hostPort] = serviceName
		}

		for _, volume := range svc.Volumes {
			source, _, found := strings.Cut(volume, ":")
			if !found || source == "" {
				fail("invalid volume '%s', expected format: <source>:<container-path>", volume)
				continue
			}
			if isBindSource(source) {
				continue
			}
			if _, declared := s.Volumes[source]; !declared {
				fail("references undeclared volume '%s'", source)
			}
		}

		for _, network := range svc.Networks {
			if _, declared := s.Networks[network]; !declared {
				fail("references undeclared network '%s'", network)
			}
		}

		for dep, condition := range svc.DependsOn {
			if dep == serviceName {
				fail("depends on itself")
				continue
			}
			target, declared := s.Services[dep]
			if !declared {
				fail("depends on undeclared service '%s'", dep)
				continue
			}
			switch condition {
			case ConditionServiceStarted:
			case ConditionServiceHealthy:
				if target.Healthcheck == nil {
					fail("requires '%s' to be healthy but '%s' declares no healthcheck", dep, dep)
				}
			default:
				fail("unknown depends_on condition '%s' for '%s'", condition, dep)
			}
		}

		if hc := svc.Healthcheck; hc != nil {
			hasCmd, hasHTTP := len(hc.Cmd) > 0, hc.HTTP != ""
			if hasCmd == hasHTTP {
				fail("healthcheck must declare exactly one of 'cmd' or 'http'")
			}
			if hc.Retries < 0 {
				fail("healthcheck retries must not be negative")
			}
		}

		if svc.Seed != nil && len(svc.Seed.Cmd) == 0 {
			fail("seed section must declare a 'cmd'")
		}

		for _, ref := range serviceHostRefs(svc.Environment) {
			if _, declared := s.Services[ref]; !declared {
				fail("environment references host '%s' which is not a declared service", ref)
			}
		}

		if svc.Proxy != nil {
			for _, upstream := range svc.Proxy.Upstreams() {
				if _, declared := s.Services[upstream]; !declared {
					fail("proxy routes to undeclared service '%s'", upstream)
				}
			}
			if _, err := svc.Proxy.Render(); err != nil {
				fail("%v", err)
			}
		}
	}

	if _, err := s.StartupOrder(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParsePortMapping accepts "HOST:CONTAINER" and container-only "PORT" forms,
// returning the host port (0 when none is published).
func ParsePortMapping(mapping string) (int, error) {
	hostStr, containerStr, published := strings.Cut(mapping, ":")
	if !published {
		if _, err := parsePort(mapping); err != nil {
			return 0, fmt.Errorf("invalid port '%s': %w", mapping, err)
		}
		return 0, nil
	}

	hostPort, err := parsePort(hostStr)
	if err != nil {
		return 0, fmt.Errorf("invalid host port in '%s': %w", mapping, err)
	}
	if _, err := parsePort(containerStr); err != nil {
		return 0, fmt.Errorf("invalid container port in '%s': %w", mapping, err)
	}

	return hostPort, nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a number", value)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%d is outside 1-65535", port)
	}
	return port, nil
}

func isBindSource(source string) bool {
	return strings.HasPrefix(source, "/") || strings.HasPrefix(source, "./") ||
		strings.HasPrefix(source, "../") || strings.HasPrefix(source, "~")
}

// serviceHostRefs extracts single-label hosts from URL-shaped environment
// values. Single-label names only resolve over the stack network, so they
// must name declared services; dotted hosts and localhost are external.
func serviceHostRefs(environment []string) []string {
	refs := make([]string, 0, len(environment))
	for _, entry := range environment {
		_, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		for _, match := range urlHostRegExp.FindAllStringSubmatch(value, -1) {
			host := match[1]
			if host == "localhost" || strings.Contains(host, ".") {
				continue
			}
			refs = append(refs, host)
		}
	}
	return refs
}
