package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"dagger.io/dagger"
	"dagger.io/dagger/dag"
	"github.com/AnotherFullstackDev/stack-ctl/internal/build/buildcontext"
	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/AnotherFullstackDev/stack-ctl/internal/placeholders"
)

// Config describes a two stage image build: a builder stage that compiles
// the service from its directory and a runtime stage that receives only the
// build artifacts. This is the multi-stage Dockerfile pattern without a
// Dockerfile; a JDK builder handing a jar to a JRE runtime, or a node
// builder handing a dist/ to nginx.
type Config struct {
	Platform  lib.Platform `mapstructure:"platform"`
	Builder   Stage        `mapstructure:"builder"`
	Runtime   Stage        `mapstructure:"runtime"`
	Artifacts []Artifact   `mapstructure:"artifacts"`
	// Include narrows the build context to the matching paths, on top of
	// the ignore rules. Doublestar patterns, relative to the context dir.
	Include []string `mapstructure:"include"`
	// Cmd overrides the runtime image entrypoint. Empty keeps the base
	// image's own command, which is what an nginx runtime wants.
	Cmd []string `mapstructure:"cmd"`
}

type Stage struct {
	Image   string `mapstructure:"image"`
	Workdir string `mapstructure:"workdir"`
	// Env entries use NAME=value form. Viper lowercases map keys, which
	// would mangle variable names, so this is a list.
	Env    []string   `mapstructure:"env"`
	Caches []Cache    `mapstructure:"caches"`
	Run    [][]string `mapstructure:"run"`
}

// Cache mounts a named cache volume into the builder, for dependency
// stores like /root/.m2 or the pnpm store that should survive rebuilds.
type Cache struct {
	Path   string `mapstructure:"path"`
	Volume string `mapstructure:"volume"`
}

// Artifact copies a path from the builder stage into the runtime stage.
// Dir marks directory artifacts, like a dist/ handed to nginx; without it
// the path is copied as a single file.
type Artifact struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
	Dir  bool   `mapstructure:"dir"`
}

const (
	defaultBuilderWorkdir = "/build"
	defaultRuntimeWorkdir = "/app"
)

type Service struct {
	config       Config
	contextDir   string
	placeholders *placeholders.Service

	// extra files written into the runtime stage, path to contents.
	// The frontend build injects its rendered nginx config this way.
	runtimeFiles map[string]string
}

func NewService(config Config, contextDir string, placeholdersService *placeholders.Service) *Service {
	return &Service{
		config:       config,
		contextDir:   contextDir,
		placeholders: placeholdersService,
		runtimeFiles: map[string]string{},
	}
}

// WithRuntimeFile registers an in-memory file to be written into the
// runtime stage at the given absolute path.
func (s *Service) WithRuntimeFile(path, contents string) *Service {
	s.runtimeFiles[path] = contents
	return s
}

func (s *Service) validate() error {
	platform := s.config.Platform
	if platform == "" {
		platform = lib.PlatformLinuxAmd64
	}
	allowedPlatforms := map[lib.Platform]struct{}{
		lib.PlatformLinuxAmd64: {},
		lib.PlatformLinuxArm64: {},
	}
	if _, ok := allowedPlatforms[platform]; !ok {
		supported := make([]string, 0, len(allowedPlatforms))
		for platform := range allowedPlatforms {
			supported = append(supported, string(platform))
		}
		return fmt.Errorf("%w - unsupported platform '%s' for pipeline builds. Supported are %s", lib.BadUserInputError, platform, strings.Join(supported, ", "))
	}

	if s.config.Builder.Image == "" {
		return fmt.Errorf("%w - pipeline builder stage has no image", lib.BadUserInputError)
	}
	if s.config.Runtime.Image == "" {
		return fmt.Errorf("%w - pipeline runtime stage has no image", lib.BadUserInputError)
	}
	if len(s.config.Artifacts) == 0 {
		return fmt.Errorf("%w - pipeline declares no artifacts to copy into the runtime stage", lib.BadUserInputError)
	}
	for _, artifact := range s.config.Artifacts {
		if artifact.From == "" || artifact.To == "" {
			return fmt.Errorf("%w - pipeline artifact needs both 'from' and 'to'", lib.BadUserInputError)
		}
	}
	for _, cache := range s.config.Builder.Caches {
		if cache.Path == "" || cache.Volume == "" {
			return fmt.Errorf("%w - pipeline cache needs both 'path' and 'volume'", lib.BadUserInputError)
		}
	}

	return nil
}

func (s *Service) platform() lib.Platform {
	if s.config.Platform == "" {
		return lib.PlatformLinuxAmd64
	}
	return s.config.Platform
}

// ProcessPipeline runs the two stages and exports the runtime container
// into the local daemon under outputImage.
func (s *Service) ProcessPipeline(ctx context.Context, outputImage string) error {
	l := slog.With("context", "pipeline_service")

	if err := s.validate(); err != nil {
		return err
	}

	buildContext, err := s.scanContext()
	if err != nil {
		return err
	}

	l.Info("building image from pipeline config",
		"context", s.contextDir,
		"files", len(buildContext.Files),
		"builder", s.config.Builder.Image,
		"runtime", s.config.Runtime.Image,
		"platform", s.platform())

	client, err := dagger.Connect(
		ctx,
		dagger.WithLogOutput(os.Stdout),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to Dagger: %w", err)
	}
	defer client.Close()

	builder, err := s.builderStage(client, buildContext)
	if err != nil {
		return err
	}

	runtime, err := s.runtimeStage(client, builder)
	if err != nil {
		return err
	}

	if err := runtime.ExportImage(ctx, outputImage); err != nil {
		return fmt.Errorf("exporting pipeline image: %w", err)
	}

	l.Info("image built successfully via pipeline", "image", outputImage)
	l.Info(fmt.Sprintf("run 'docker run --rm -it %s sh' to access the image", outputImage))

	return nil
}

// scanContext walks the context dir honoring the ignore file and the
// configured include patterns.
func (s *Service) scanContext() (*buildcontext.Context, error) {
	buildContext, err := buildcontext.Scan(s.contextDir, s.config.Include)
	if err != nil {
		return nil, fmt.Errorf("scanning build context: %w", err)
	}
	if len(buildContext.Files) == 0 {
		return nil, fmt.Errorf("%w - build context '%s' contains no files", lib.BadUserInputError, s.contextDir)
	}
	return buildContext, nil
}

func (s *Service) builderStage(client *dagger.Client, buildContext *buildcontext.Context) (*dagger.Container, error) {
	workdir := s.config.Builder.Workdir
	if workdir == "" {
		workdir = defaultBuilderWorkdir
	}

	builder := dag.Container(dagger.ContainerOpts{Platform: dagger.Platform(s.platform())}).
		From(s.config.Builder.Image).
		WithWorkdir(workdir)

	builder, err := s.withStageEnv(builder, s.config.Builder.Env)
	if err != nil {
		return nil, err
	}

	for _, cache := range s.config.Builder.Caches {
		builder = builder.WithMountedCache(cache.Path, client.CacheVolume(cache.Volume))
	}

	builder = builder.WithDirectory(workdir, dag.Host().Directory(buildContext.Dir), dagger.ContainerWithDirectoryOpts{
		Include: buildContext.Files,
	})

	for _, cmd := range s.config.Builder.Run {
		resolved, err := s.resolveArgv(cmd)
		if err != nil {
			return nil, fmt.Errorf("resolving builder command: %w", err)
		}
		builder = builder.WithExec(resolved)
	}

	return builder, nil
}

func (s *Service) runtimeStage(client *dagger.Client, builder *dagger.Container) (*dagger.Container, error) {
	workdir := s.config.Runtime.Workdir
	if workdir == "" {
		workdir = defaultRuntimeWorkdir
	}

	runtime := client.Container(dagger.ContainerOpts{Platform: dagger.Platform(s.platform())}).
		From(s.config.Runtime.Image).
		WithWorkdir(workdir)

	runtime, err := s.withStageEnv(runtime, s.config.Runtime.Env)
	if err != nil {
		return nil, err
	}

	for _, artifact := range s.config.Artifacts {
		if artifact.Dir {
			runtime = runtime.WithDirectory(artifact.To, builder.Directory(artifact.From))
		} else {
			runtime = runtime.WithFile(artifact.To, builder.File(artifact.From))
		}
	}

	for path, contents := range s.runtimeFiles {
		runtime = runtime.WithNewFile(path, contents)
	}

	for _, cmd := range s.config.Runtime.Run {
		resolved, err := s.resolveArgv(cmd)
		if err != nil {
			return nil, fmt.Errorf("resolving runtime command: %w", err)
		}
		runtime = runtime.WithExec(resolved)
	}

	if len(s.config.Cmd) > 0 {
		cmd, err := s.resolveArgv(s.config.Cmd)
		if err != nil {
			return nil, fmt.Errorf("resolving runtime cmd: %w", err)
		}
		runtime = runtime.
			WithEntrypoint([]string{cmd[0]}).
			WithDefaultArgs(cmd[1:])
	}

	return runtime, nil
}

func (s *Service) withStageEnv(container *dagger.Container, env []string) (*dagger.Container, error) {
	for _, entry := range env {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w - stage env entry '%s' is not in NAME=value form", lib.BadUserInputError, entry)
		}

		resolved, err := s.placeholders.ResolvePlaceholders(value)
		if err != nil {
			return nil, fmt.Errorf("resolving stage env var '%s': %w", key, err)
		}

		container = container.WithEnvVariable(key, resolved)
	}
	return container, nil
}

func (s *Service) resolveArgv(argv []string) ([]string, error) {
	resolved := make([]string, 0, len(argv))
	for _, part := range argv {
		resolvedPart, err := s.placeholders.ResolvePlaceholders(part)
		if err != nil {
			return nil, fmt.Errorf("resolving placeholders in '%s': %w", part, err)
		}
		resolved = append(resolved, resolvedPart)
	}
	return resolved, nil
}
