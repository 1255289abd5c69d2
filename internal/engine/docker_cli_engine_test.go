package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	args []string
}

type fakeRunner struct {
	calls   []recordedCall
	outputs map[string]string
	failOn  map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, failOn: map[string]error{}}
}

func (f *fakeRunner) key(args []string) string {
	return strings.Join(args, " ")
}

func (f *fakeRunner) Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	f.calls = append(f.calls, recordedCall{args: args})
	if err, ok := f.failOn[f.key(args)]; ok {
		return err
	}
	if out, ok := f.outputs[f.key(args)]; ok {
		_, _ = io.WriteString(stdout, out)
	}
	return nil
}

func (f *fakeRunner) Output(ctx context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, recordedCall{args: args})
	if err, ok := f.failOn[f.key(args)]; ok {
		return "", err
	}
	return f.outputs[f.key(args)], nil
}

func (f *fakeRunner) lastCall(t *testing.T) []string {
	t.Helper()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1].args
}

func TestRunContainer(t *testing.T) {
	r := require.New(t)

	t.Run("must compose the full run invocation", func(t *testing.T) {
		runner := newFakeRunner()
		e := NewCLIEngineWithRunner(runner)

		err := e.RunContainer(context.Background(), RunOptions{
			Name:    "webshop-database",
			Image:   "postgres:16-alpine",
			Network: "webshop-net",
			Alias:   "database",
			Ports:   []string{"5432:5432"},
			Env:     []string{"POSTGRES_DB=shop"},
			Volumes: []string{"db-data:/var/lib/postgresql/data"},
			Restart: "unless-stopped",
		})
		r.NoError(err)

		r.Equal([]string{
			"run", "--detach", "--name", "webshop-database",
			"--network", "webshop-net", "--network-alias", "database",
			"--publish", "5432:5432",
			"--env", "POSTGRES_DB=shop",
			"--volume", "db-data:/var/lib/postgresql/data",
			"--restart", "unless-stopped",
			"postgres:16-alpine",
		}, runner.lastCall(t))
	})

	t.Run("must append the command after the image", func(t *testing.T) {
		runner := newFakeRunner()
		e := NewCLIEngineWithRunner(runner)

		err := e.RunContainer(context.Background(), RunOptions{
			Name:    "webshop-migrate",
			Image:   "migrate:latest",
			Command: []string{"up", "--all"},
		})
		r.NoError(err)

		args := runner.lastCall(t)
		r.Equal([]string{"migrate:latest", "up", "--all"}, args[len(args)-3:])
	})

	t.Run("must reject missing name or image", func(t *testing.T) {
		e := NewCLIEngineWithRunner(newFakeRunner())
		r.Error(e.RunContainer(context.Background(), RunOptions{Image: "x"}))
		r.Error(e.RunContainer(context.Background(), RunOptions{Name: "x"}))
	})
}

func TestNetworks(t *testing.T) {
	r := require.New(t)

	t.Run("must create a missing network with bridge default", func(t *testing.T) {
		runner := newFakeRunner()
		e := NewCLIEngineWithRunner(runner)

		r.NoError(e.EnsureNetwork(context.Background(), "webshop-net", ""))
		r.Equal([]string{"network", "create", "--driver", "bridge", "webshop-net"}, runner.lastCall(t))
	})

	t.Run("must skip creation when the network exists", func(t *testing.T) {
		runner := newFakeRunner()
		runner.outputs["network ls --filter name=^webshop-net$ --format {{.Name}}"] = "webshop-net"
		e := NewCLIEngineWithRunner(runner)

		r.NoError(e.EnsureNetwork(context.Background(), "webshop-net", "bridge"))
		r.Len(runner.calls, 1)
	})

	t.Run("must connect a container with its service alias", func(t *testing.T) {
		runner := newFakeRunner()
		e := NewCLIEngineWithRunner(runner)

		r.NoError(e.ConnectNetwork(context.Background(), "webshop-admin-net", "webshop-backend", "backend"))
		r.Equal([]string{"network", "connect", "--alias", "backend", "webshop-admin-net", "webshop-backend"}, runner.lastCall(t))
	})
}

func TestInspectContainer(t *testing.T) {
	r := require.New(t)

	t.Run("must decode the engine state", func(t *testing.T) {
		runner := newFakeRunner()
		runner.outputs["inspect --format {{json .State}} webshop-database"] = `{"Status":"running","Running":true,"ExitCode":0}`
		e := NewCLIEngineWithRunner(runner)

		state, err := e.InspectContainer(context.Background(), "webshop-database")
		r.NoError(err)
		r.True(state.Exists)
		r.True(state.Running)
		r.Equal("running", state.Status)
	})

	t.Run("must treat a missing-object error as a missing container", func(t *testing.T) {
		runner := newFakeRunner()
		runner.failOn["inspect --format {{json .State}} gone"] = errors.New("Error: No such object: gone")
		e := NewCLIEngineWithRunner(runner)

		state, err := e.InspectContainer(context.Background(), "gone")
		r.NoError(err)
		r.False(state.Exists)
		r.False(state.Running)
	})

	t.Run("must surface daemon failures instead of reporting a missing container", func(t *testing.T) {
		runner := newFakeRunner()
		runner.failOn["inspect --format {{json .State}} webshop-database"] = errors.New("Cannot connect to the Docker daemon")
		e := NewCLIEngineWithRunner(runner)

		_, err := e.InspectContainer(context.Background(), "webshop-database")
		r.Error(err)
		r.Contains(err.Error(), "Docker daemon")
	})
}

func TestExecAndLogs(t *testing.T) {
	r := require.New(t)

	t.Run("must pass stdin through interactive exec", func(t *testing.T) {
		runner := newFakeRunner()
		e := NewCLIEngineWithRunner(runner)

		err := e.Exec(context.Background(), "webshop-database",
			[]string{"psql", "-U", "shop"}, strings.NewReader("select 1;"), io.Discard, io.Discard)
		r.NoError(err)
		r.Equal([]string{"exec", "--interactive", "webshop-database", "psql", "-U", "shop"}, runner.lastCall(t))
	})

	t.Run("must not request interactive mode without stdin", func(t *testing.T) {
		runner := newFakeRunner()
		e := NewCLIEngineWithRunner(runner)

		r.NoError(e.Exec(context.Background(), "c", []string{"true"}, nil, io.Discard, io.Discard))
		r.Equal([]string{"exec", "c", "true"}, runner.lastCall(t))
	})

	t.Run("must follow logs on request", func(t *testing.T) {
		runner := newFakeRunner()
		e := NewCLIEngineWithRunner(runner)

		r.NoError(e.Logs(context.Background(), "c", true, io.Discard))
		r.Equal([]string{"logs", "--follow", "c"}, runner.lastCall(t))
	})
}

func TestImageCreatedAt(t *testing.T) {
	r := require.New(t)

	runner := newFakeRunner()
	runner.outputs["image inspect --format {{.Created}} webshop-backend:latest"] = "2026-08-01T10:30:00.123456789Z"
	e := NewCLIEngineWithRunner(runner)

	createdAt, err := e.ImageCreatedAt(context.Background(), "webshop-backend:latest")
	r.NoError(err)
	r.Equal(2026, createdAt.Year())
	r.Equal(30, createdAt.Minute())
}
