package lib

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// GetSecretFromEnvOrInput looks a secret up in order: the provided
// environment variable names, the credentials storage, and finally an
// interactive prompt. Values obtained from the prompt are persisted back to
// the storage under storageKey so the prompt happens once.
func GetSecretFromEnvOrInput(storage CredentialsStorage, storageKey, storageLabel string, envKeys []string, in io.Reader, out io.Writer, prompt string) (string, error) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			slog.Debug("secret resolved from environment", "env", envKey)
			return value, nil
		}
	}

	stored, err := storage.Get(storageKey)
	if err != nil {
		return "", fmt.Errorf("reading %q from credentials storage: %w", storageKey, err)
	}
	if stored != "" {
		return stored, nil
	}

	secret, err := RequestSecretInput(in, out, prompt)
	if err != nil {
		return "", fmt.Errorf("requesting secret input: %w", err)
	}
	if secret == "" {
		return "", fmt.Errorf("%w - empty value provided for %q", BadUserInputError, storageLabel)
	}

	if err := storage.Set(storageKey, secret, KeyExtras{Label: storageLabel}); err != nil {
		return "", fmt.Errorf("storing %q in credentials storage: %w", storageKey, err)
	}

	return secret, nil
}
