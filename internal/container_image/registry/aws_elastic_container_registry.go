package registry

import (
	"fmt"
	"strings"

	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	ecrhelper "github.com/awslabs/amazon-ecr-credential-helper/ecr-login"
	ecrapi "github.com/awslabs/amazon-ecr-credential-helper/ecr-login/api"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
)

type AwsECRConfig string

type AwsECR struct {
	config AwsECRConfig
}

func NewAwsECR(config AwsECRConfig) Registry {
	return &AwsECR{config}
}

func (r *AwsECR) GetAuthType() AuthType {
	return AuthTypeKeychain
}

func (r *AwsECR) GetAuthentication() (authn.Authenticator, error) {
	return nil, nil
}

func (r *AwsECR) ResetAuthentication() error { return nil }

func (r *AwsECR) GetKeychain() authn.Keychain {
	helper := ecrhelper.NewECRHelper(ecrhelper.WithClientFactory(ecrapi.DefaultClientFactory{}))
	return authn.NewKeychainFromHelper(helper)
}

// GetImageRef validates the destination against the
// <aws_account_id>.dkr.ecr.<region>.amazonaws.com/<repository>:<tag> shape.
func (r *AwsECR) GetImageRef() (string, error) {
	imageRef := string(r.config)

	tag, err := name.NewTag(imageRef, name.StrictValidation)
	if err != nil {
		return "", fmt.Errorf("%w - invalid AWS ECR image ref '%s': %s", lib.BadUserInputError, imageRef, err)
	}

	registryHost := tag.RegistryStr()
	if !strings.Contains(registryHost, ".dkr.ecr.") || !strings.HasSuffix(registryHost, ".amazonaws.com") {
		return "", fmt.Errorf("%w - invalid AWS ECR registry host '%s', expected format: <aws_account_id>.dkr.ecr.<region>.amazonaws.com", lib.BadUserInputError, registryHost)
	}

	return imageRef, nil
}
