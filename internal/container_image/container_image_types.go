package container_image

import (
	"context"

	"github.com/AnotherFullstackDev/stack-ctl/internal/placeholders"
)

type PlaceholdersResolver interface {
	ResolvePlaceholders(input string, extraResolvers ...map[string]placeholders.PlaceholderResolver) (string, error)
}

// PipelineRunner builds an image into the local daemon under the given
// output ref.
type PipelineRunner interface {
	ProcessPipeline(ctx context.Context, outputImage string) error
}
