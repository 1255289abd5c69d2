package registry

import (
	"fmt"
	"strings"

	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/google"
)

// GcpArtifactRegistryConfig - GCP Artifact Registry / GCR destination ref
type GcpArtifactRegistryConfig string

type GcpArtifactRegistry struct {
	config GcpArtifactRegistryConfig
}

func NewGcpArtifactRegistry(config GcpArtifactRegistryConfig) Registry {
	return &GcpArtifactRegistry{config}
}

func (r *GcpArtifactRegistry) GetAuthType() AuthType {
	return AuthTypeKeychain
}

func (r *GcpArtifactRegistry) GetAuthentication() (authn.Authenticator, error) {
	return nil, nil
}

func (r *GcpArtifactRegistry) ResetAuthentication() error { return nil }

func (r *GcpArtifactRegistry) GetKeychain() authn.Keychain {
	// google.Keychain resolves ADC, gcloud CLI credentials, and the
	// attached service account in that order.
	return google.Keychain
}

// GetImageRef accepts Artifact Registry
// (<region>-docker.pkg.dev/<project>/<repository>/<image>:<tag>) and GCR
// (gcr.io/<project>/<image>:<tag>) destinations.
func (r *GcpArtifactRegistry) GetImageRef() (string, error) {
	imageRef := string(r.config)

	tag, err := name.NewTag(imageRef, name.StrictValidation)
	if err != nil {
		return "", fmt.Errorf("%w - invalid GCP registry image ref '%s': %s", lib.BadUserInputError, imageRef, err)
	}

	registryHost := tag.RegistryStr()
	isArtifactRegistry := strings.HasSuffix(registryHost, "-docker.pkg.dev")
	isGCR := registryHost == "gcr.io" || strings.HasSuffix(registryHost, ".gcr.io")
	if !isArtifactRegistry && !isGCR {
		return "", fmt.Errorf("%w - invalid GCP registry host '%s', expected <region>-docker.pkg.dev or gcr.io", lib.BadUserInputError, registryHost)
	}

	return imageRef, nil
}
