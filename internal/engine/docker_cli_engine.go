package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
)

const DefaultBinary = "docker"

// CommandRunner executes one engine CLI invocation. The production runner
// shells out; tests substitute a recorder.
type CommandRunner interface {
	Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error
	Output(ctx context.Context, args ...string) (string, error)
}

type execCommandRunner struct {
	binary string
}

func (r *execCommandRunner) Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	command := exec.CommandContext(ctx, r.binary, args...)
	command.Stdin = stdin
	command.Stdout = stdout
	command.Stderr = stderr

	slog.DebugContext(ctx, "running engine command", "args", command.Args)

	if err := command.Run(); err != nil {
		return fmt.Errorf("running '%s %s': %w", r.binary, strings.Join(args, " "), err)
	}
	return nil
}

func (r *execCommandRunner) Output(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, r.binary, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	slog.DebugContext(ctx, "running engine command", "args", command.Args)

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("running '%s %s': %s: %w", r.binary, strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// CLIEngine drives a docker-compatible engine through its CLI. The binary
// is configurable so podman works unchanged.
type CLIEngine struct {
	runner CommandRunner
}

func NewCLIEngine(binary string) *CLIEngine {
	if binary == "" {
		binary = os.Getenv(lib.EngineEnv)
	}
	if binary == "" {
		binary = DefaultBinary
	}
	return &CLIEngine{runner: &execCommandRunner{binary: binary}}
}

// NewCLIEngineWithRunner is the test seam.
func NewCLIEngineWithRunner(runner CommandRunner) *CLIEngine {
	return &CLIEngine{runner: runner}
}

func (e *CLIEngine) NetworkExists(ctx context.Context, name string) (bool, error) {
	out, err := e.runner.Output(ctx, "network", "ls", "--filter", "name=^"+name+"$", "--format", "{{.Name}}")
	if err != nil {
		return false, fmt.Errorf("listing networks: %w", err)
	}
	return out == name, nil
}

func (e *CLIEngine) EnsureNetwork(ctx context.Context, name, driver string) error {
	exists, err := e.NetworkExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if driver == "" {
		driver = "bridge"
	}

	slog.InfoContext(ctx, "creating network", "network", name, "driver", driver)
	if err := e.runner.Run(ctx, nil, io.Discard, os.Stderr, "network", "create", "--driver", driver, name); err != nil {
		return fmt.Errorf("creating network %s: %w", name, err)
	}
	return nil
}

func (e *CLIEngine) RemoveNetwork(ctx context.Context, name string) error {
	exists, err := e.NetworkExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	slog.InfoContext(ctx, "removing network", "network", name)
	if err := e.runner.Run(ctx, nil, io.Discard, os.Stderr, "network", "rm", name); err != nil {
		return fmt.Errorf("removing network %s: %w", name, err)
	}
	return nil
}

func (e *CLIEngine) ConnectNetwork(ctx context.Context, network, container, alias string) error {
	args := []string{"network", "connect"}
	if alias != "" {
		args = append(args, "--alias", alias)
	}
	args = append(args, network, container)

	slog.InfoContext(ctx, "connecting container to network", "container", container, "network", network)
	if err := e.runner.Run(ctx, nil, io.Discard, os.Stderr, args...); err != nil {
		return fmt.Errorf("connecting container %s to network %s: %w", container, network, err)
	}
	return nil
}

func (e *CLIEngine) EnsureVolume(ctx context.Context, name string) error {
	// volume create is idempotent for existing names
	if err := e.runner.Run(ctx, nil, io.Discard, os.Stderr, "volume", "create", name); err != nil {
		return fmt.Errorf("creating volume %s: %w", name, err)
	}
	return nil
}

func (e *CLIEngine) RemoveVolume(ctx context.Context, name string) error {
	slog.InfoContext(ctx, "removing volume", "volume", name)
	if err := e.runner.Run(ctx, nil, io.Discard, os.Stderr, "volume", "rm", name); err != nil {
		return fmt.Errorf("removing volume %s: %w", name, err)
	}
	return nil
}

func (e *CLIEngine) RunContainer(ctx context.Context, opts RunOptions) error {
	if opts.Name == "" || opts.Image == "" {
		return fmt.Errorf("%w - container name and image are required", lib.BadUserInputError)
	}

	args := []string{"run", "--detach", "--name", opts.Name}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
		if opts.Alias != "" {
			args = append(args, "--network-alias", opts.Alias)
		}
	}
	for _, port := range opts.Ports {
		args = append(args, "--publish", port)
	}
	for _, env := range opts.Env {
		args = append(args, "--env", env)
	}
	if opts.EnvFile != "" {
		args = append(args, "--env-file", opts.EnvFile)
	}
	for _, volume := range opts.Volumes {
		args = append(args, "--volume", volume)
	}
	if opts.Restart != "" {
		args = append(args, "--restart", opts.Restart)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	slog.InfoContext(ctx, "starting container", "container", opts.Name, "image", opts.Image)
	if err := e.runner.Run(ctx, nil, io.Discard, os.Stderr, args...); err != nil {
		return fmt.Errorf("starting container %s: %w", opts.Name, err)
	}
	return nil
}

func (e *CLIEngine) StopContainer(ctx context.Context, name string) error {
	slog.InfoContext(ctx, "stopping container", "container", name)
	if err := e.runner.Run(ctx, nil, io.Discard, os.Stderr, "stop", name); err != nil {
		return fmt.Errorf("stopping container %s: %w", name, err)
	}
	return nil
}

func (e *CLIEngine) RemoveContainer(ctx context.Context, name string) error {
	if err := e.runner.Run(ctx, nil, io.Discard, os.Stderr, "rm", "--force", name); err != nil {
		return fmt.Errorf("removing container %s: %w", name, err)
	}
	return nil
}

type inspectedState struct {
	Status   string `json:"Status"`
	Running  bool   `json:"Running"`
	ExitCode int    `json:"ExitCode"`
}

func (e *CLIEngine) InspectContainer(ctx context.Context, name string) (ContainerState, error) {
	out, err := e.runner.Output(ctx, "inspect", "--format", "{{json .State}}", name)
	if err != nil {
		if isNoSuchObject(err) {
			return ContainerState{Name: name, Exists: false}, nil
		}
		return ContainerState{}, fmt.Errorf("inspecting container %s: %w", name, err)
	}

	var state inspectedState
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		return ContainerState{}, fmt.Errorf("decoding inspect output for %s: %w", name, err)
	}

	return ContainerState{
		Name:     name,
		Exists:   true,
		Running:  state.Running,
		Status:   state.Status,
		ExitCode: state.ExitCode,
	}, nil
}

// isNoSuchObject recognizes the engine's missing-object inspect error.
// docker prints "No such object", podman "no such container"; anything else
// (stopped daemon, permissions) is a real failure.
func isNoSuchObject(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such object") || strings.Contains(msg, "no such container")
}

func (e *CLIEngine) Exec(ctx context.Context, container string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(cmd) == 0 {
		return fmt.Errorf("%w - no command provided for exec", lib.BadUserInputError)
	}

	args := []string{"exec"}
	if stdin != nil {
		args = append(args, "--interactive")
	}
	args = append(args, container)
	args = append(args, cmd...)

	if err := e.runner.Run(ctx, stdin, stdout, stderr, args...); err != nil {
		return fmt.Errorf("executing in container %s: %w", container, err)
	}
	return nil
}

func (e *CLIEngine) Logs(ctx context.Context, container string, follow bool, out io.Writer) error {
	args := []string{"logs"}
	if follow {
		args = append(args, "--follow")
	}
	args = append(args, container)

	if err := e.runner.Run(ctx, nil, out, out, args...); err != nil {
		return fmt.Errorf("reading logs of container %s: %w", container, err)
	}
	return nil
}

func (e *CLIEngine) Stats(ctx context.Context, containers []string, out io.Writer) error {
	args := append([]string{"stats", "--no-stream"}, containers...)
	if err := e.runner.Run(ctx, nil, out, os.Stderr, args...); err != nil {
		return fmt.Errorf("reading container stats: %w", err)
	}
	return nil
}

func (e *CLIEngine) ImageCreatedAt(ctx context.Context, ref string) (time.Time, error) {
	out, err := e.runner.Output(ctx, "image", "inspect", "--format", "{{.Created}}", ref)
	if err != nil {
		return time.Time{}, fmt.Errorf("inspecting image %s: %w", ref, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, out)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing image creation time %q: %w", out, err)
	}
	return createdAt, nil
}
