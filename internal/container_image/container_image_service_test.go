package container_image

import (
	"context"
	"testing"

	"github.com/AnotherFullstackDev/stack-ctl/internal/build/pipeline"
	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/AnotherFullstackDev/stack-ctl/internal/placeholders"
	"github.com/stretchr/testify/require"
)

type fakePipelineRunner struct {
	calls []string
	err   error
}

func (f *fakePipelineRunner) ProcessPipeline(ctx context.Context, outputImage string) error {
	f.calls = append(f.calls, outputImage)
	return f.err
}

func TestBuildImage(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	resolver := placeholders.NewService(nil)

	t.Run("must route pipeline configs through the pipeline runner", func(t *testing.T) {
		t.Parallel()
		runner := &fakePipelineRunner{}
		service := NewService(Config{
			Image: "webshop-backend:latest",
			Build: BuildConfig{Pipeline: &pipeline.Config{}},
		}, nil, resolver, runner)

		r.NoError(service.BuildImage(context.Background()))
		r.Equal([]string{"webshop-backend:latest"}, runner.calls)
	})

	t.Run("must reject configs without a build strategy", func(t *testing.T) {
		t.Parallel()
		service := NewService(Config{Image: "webshop-backend:latest"}, nil, resolver, nil)

		err := service.BuildImage(context.Background())
		r.ErrorIs(err, lib.BadUserInputError)
		r.Contains(err.Error(), "no image build strategy")
	})

	t.Run("must reject configs without an image ref", func(t *testing.T) {
		t.Parallel()
		service := NewService(Config{
			Build: BuildConfig{Pipeline: &pipeline.Config{}},
		}, nil, resolver, &fakePipelineRunner{})

		r.ErrorIs(service.BuildImage(context.Background()), lib.BadUserInputError)
	})

	t.Run("must run cmd builds in the service directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		service := NewService(Config{
			Image: "webshop-backend:latest",
			Build: BuildConfig{Cmd: []string{"true"}, Dir: dir},
		}, nil, resolver, nil)

		r.NoError(service.BuildImage(context.Background()))
	})
}

func TestPushImage(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	t.Run("must require a configured registry", func(t *testing.T) {
		t.Parallel()
		service := NewService(Config{Image: "webshop-backend:latest"}, nil, placeholders.NewService(nil), nil)

		err := service.PushImage(context.Background())
		r.ErrorIs(err, lib.BadUserInputError)
		r.Contains(err.Error(), "no registry configured")
	})
}
