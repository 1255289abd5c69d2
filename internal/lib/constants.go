package lib

import "fmt"

const (
	EnvKeyPrefix = "STACKCTL"
)

var (
	LogLevelEnv = fmt.Sprintf("%s_%s", EnvKeyPrefix, "LOG_LEVEL")
	EngineEnv   = fmt.Sprintf("%s_%s", EnvKeyPrefix, "ENGINE")
)

var (
	GHCRAccessKeyEnv = fmt.Sprintf("%s_%s", EnvKeyPrefix, "GHCR_ACCESS_KEY")
	GithubTokenEnv   = "GITHUB_TOKEN"
)
