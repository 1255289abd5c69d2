package registry

import "github.com/google/go-containerregistry/pkg/authn"

type AuthType string

const (
	AuthTypeAuthenticator AuthType = "authenticator"
	AuthTypeKeychain      AuthType = "keychain"
)

// Registry is a push destination. Keychain-backed registries (ECR, GCP)
// resolve credentials through their cloud helper; authenticator-backed
// ones (GHCR) hand out explicit credentials.
type Registry interface {
	GetAuthType() AuthType
	GetKeychain() authn.Keychain
	GetAuthentication() (authn.Authenticator, error)
	GetImageRef() (string, error)
}
