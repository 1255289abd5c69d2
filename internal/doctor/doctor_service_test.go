package doctor

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnotherFullstackDev/stack-ctl/internal/engine"
	"github.com/AnotherFullstackDev/stack-ctl/internal/stack"
	"github.com/stretchr/testify/require"
)

// stubEngine serves the inspection surface doctor checks use.
type stubEngine struct {
	networks map[string]bool
	states   map[string]engine.ContainerState
	images   map[string]time.Time
}

func (s *stubEngine) EnsureNetwork(ctx context.Context, name, driver string) error { return nil }
func (s *stubEngine) RemoveNetwork(ctx context.Context, name string) error         { return nil }
func (s *stubEngine) NetworkExists(ctx context.Context, name string) (bool, error) {
	return s.networks[name], nil
}
func (s *stubEngine) ConnectNetwork(ctx context.Context, network, container, alias string) error {
	return nil
}
func (s *stubEngine) EnsureVolume(ctx context.Context, name string) error { return nil }
func (s *stubEngine) RemoveVolume(ctx context.Context, name string) error { return nil }
func (s *stubEngine) RunContainer(ctx context.Context, opts engine.RunOptions) error {
	return nil
}
func (s *stubEngine) StopContainer(ctx context.Context, name string) error   { return nil }
func (s *stubEngine) RemoveContainer(ctx context.Context, name string) error { return nil }
func (s *stubEngine) InspectContainer(ctx context.Context, name string) (engine.ContainerState, error) {
	return s.states[name], nil
}
func (s *stubEngine) Exec(ctx context.Context, container string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error {
	return nil
}
func (s *stubEngine) Logs(ctx context.Context, container string, follow bool, out io.Writer) error {
	return nil
}
func (s *stubEngine) Stats(ctx context.Context, containers []string, out io.Writer) error {
	return nil
}
func (s *stubEngine) ImageCreatedAt(ctx context.Context, ref string) (time.Time, error) {
	createdAt, ok := s.images[ref]
	if !ok {
		return time.Time{}, fmt.Errorf("no such image: %s", ref)
	}
	return createdAt, nil
}

func diagnosticsSpec() *stack.Spec {
	return &stack.Spec{
		Name: "webshop",
		Services: map[string]stack.ServiceSpec{
			"database": {
				Name:  "database",
				Image: "postgres:16-alpine",
			},
			"backend": {
				Name:  "backend",
				Image: "webshop-backend:latest",
				Environment: []string{
					"SPRING_DATASOURCE_URL=jdbc:postgresql://database:5432/shop",
				},
				DependsOn: map[string]stack.DependsCondition{"database": stack.ConditionServiceHealthy},
			},
		},
		Networks: map[string]stack.NetworkSpec{"webshop-net": {}},
	}
}

func findingsFor(findings []Finding, check string) []Finding {
	var matched []Finding
	for _, finding := range findings {
		if finding.Check == check {
			matched = append(matched, finding)
		}
	}
	return matched
}

func TestDiagnose(t *testing.T) {
	r := require.New(t)

	t.Run("flags localhost refs in dependent services", func(t *testing.T) {
		spec := diagnosticsSpec()
		backend := spec.Services["backend"]
		backend.Environment = []string{"SPRING_DATASOURCE_URL=jdbc:postgresql://localhost:5432/shop"}
		spec.Services["backend"] = backend

		service := NewService(spec, &stubEngine{networks: map[string]bool{"webshop-net": true}}, nil)
		findings, err := service.Diagnose(context.Background())
		r.NoError(err)

		localhost := findingsFor(findings, CheckLocalhostRefs)
		r.Len(localhost, 1)
		r.Equal("backend", localhost[0].Service)
		r.Contains(localhost[0].Message, "SPRING_DATASOURCE_URL")
	})

	t.Run("accepts service name refs", func(t *testing.T) {
		service := NewService(diagnosticsSpec(), &stubEngine{networks: map[string]bool{"webshop-net": true}}, nil)
		findings, err := service.Diagnose(context.Background())
		r.NoError(err)
		r.Empty(findingsFor(findings, CheckLocalhostRefs))
	})

	t.Run("reports missing networks", func(t *testing.T) {
		service := NewService(diagnosticsSpec(), &stubEngine{}, nil)
		findings, err := service.Diagnose(context.Background())
		r.NoError(err)

		networks := findingsFor(findings, CheckNetworks)
		r.Len(networks, 1)
		r.Contains(networks[0].Message, "webshop-net")
	})

	t.Run("reports a host port held by a foreign process", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		r.NoError(err)
		defer listener.Close()
		port := listener.Addr().(*net.TCPAddr).Port

		spec := diagnosticsSpec()
		database := spec.Services["database"]
		database.Ports = []string{fmt.Sprintf("%d:5432", port)}
		spec.Services["database"] = database

		service := NewService(spec, &stubEngine{networks: map[string]bool{"webshop-net": true}}, nil)
		findings, err := service.Diagnose(context.Background())
		r.NoError(err)

		ports := findingsFor(findings, CheckHostPorts)
		r.Len(ports, 1)
		r.Equal("database", ports[0].Service)
	})

	t.Run("ignores container-only ports that publish nothing on the host", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		r.NoError(err)
		defer listener.Close()
		port := listener.Addr().(*net.TCPAddr).Port

		spec := diagnosticsSpec()
		database := spec.Services["database"]
		database.Ports = []string{fmt.Sprintf("%d", port)}
		spec.Services["database"] = database

		service := NewService(spec, &stubEngine{networks: map[string]bool{"webshop-net": true}}, nil)
		findings, err := service.Diagnose(context.Background())
		r.NoError(err)
		r.Empty(findingsFor(findings, CheckHostPorts))
	})

	t.Run("skips the port check for running services", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		r.NoError(err)
		defer listener.Close()
		port := listener.Addr().(*net.TCPAddr).Port

		spec := diagnosticsSpec()
		database := spec.Services["database"]
		database.Ports = []string{fmt.Sprintf("%d:5432", port)}
		spec.Services["database"] = database

		e := &stubEngine{
			networks: map[string]bool{"webshop-net": true},
			states: map[string]engine.ContainerState{
				"webshop-database": {Exists: true, Running: true},
			},
		}
		findings, err := NewService(spec, e, nil).Diagnose(context.Background())
		r.NoError(err)
		r.Empty(findingsFor(findings, CheckHostPorts))
	})

	t.Run("reports images older than their sources", func(t *testing.T) {
		dir := t.TempDir()
		r.NoError(os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project/>"), 0o644))

		e := &stubEngine{
			networks: map[string]bool{"webshop-net": true},
			images: map[string]time.Time{
				"webshop-backend:latest": time.Now().Add(-24 * time.Hour),
			},
		}
		service := NewService(diagnosticsSpec(), e, map[string]string{"backend": dir})
		findings, err := service.Diagnose(context.Background())
		r.NoError(err)

		stale := findingsFor(findings, CheckStaleImages)
		r.Len(stale, 1)
		r.Equal("backend", stale[0].Service)
		r.Contains(stale[0].Message, "service build backend")
	})

	t.Run("reports missing local images for build services", func(t *testing.T) {
		dir := t.TempDir()

		e := &stubEngine{networks: map[string]bool{"webshop-net": true}}
		service := NewService(diagnosticsSpec(), e, map[string]string{"backend": dir})
		findings, err := service.Diagnose(context.Background())
		r.NoError(err)

		stale := findingsFor(findings, CheckStaleImages)
		r.Len(stale, 1)
		r.Contains(stale[0].Message, "not present locally")
	})

	t.Run("stays quiet on a healthy stack", func(t *testing.T) {
		e := &stubEngine{
			networks: map[string]bool{"webshop-net": true},
			images: map[string]time.Time{
				"webshop-backend:latest": time.Now().Add(time.Hour),
			},
		}
		findings, err := NewService(diagnosticsSpec(), e, nil).Diagnose(context.Background())
		r.NoError(err)
		r.Empty(findings)
	})
}
