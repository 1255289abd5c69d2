package engine

import (
	"context"
	"io"
	"time"
)

// RunOptions describes one detached container the way the stack file
// declares it.
type RunOptions struct {
	Name    string
	Image   string
	Network string
	// Alias is the name other containers on the network resolve, normally
	// the bare service name.
	Alias   string
	Ports   []string
	Env     []string
	EnvFile string
	Volumes []string
	Restart string
	Command []string
}

type ContainerState struct {
	Name     string
	Exists   bool
	Running  bool
	Status   string
	ExitCode int
}

// Engine drives the local container runtime. Implementations shell out to
// the engine binary; the interface exists so the orchestrator and doctor are
// testable against a fake.
type Engine interface {
	EnsureNetwork(ctx context.Context, name, driver string) error
	RemoveNetwork(ctx context.Context, name string) error
	NetworkExists(ctx context.Context, name string) (bool, error)
	ConnectNetwork(ctx context.Context, network, container, alias string) error

	EnsureVolume(ctx context.Context, name string) error
	RemoveVolume(ctx context.Context, name string) error

	RunContainer(ctx context.Context, opts RunOptions) error
	StopContainer(ctx context.Context, name string) error
	RemoveContainer(ctx context.Context, name string) error
	InspectContainer(ctx context.Context, name string) (ContainerState, error)

	Exec(ctx context.Context, container string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error
	Logs(ctx context.Context, container string, follow bool, out io.Writer) error
	Stats(ctx context.Context, containers []string, out io.Writer) error

	ImageCreatedAt(ctx context.Context, ref string) (time.Time, error)
}
