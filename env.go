package kliento

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables consumed by NewFromEnv.
const (
	// EnvBaseURL overrides the backend base URL.
	EnvBaseURL = "KLIENTO_BASE_URL"
	// EnvOrgID sets the default tenant.
	EnvOrgID = "KLIENTO_ORG_ID"
	// EnvDebug enables debug logging when set to a non-empty value.
	EnvDebug = "KLIENTO_DEBUG"
)

// DefaultBaseURL is used when no base URL is configured anywhere.
const DefaultBaseURL = "http://localhost:8000"

// LoadEnv loads variables from .env files into the process environment.
// Missing files are not an error so a bare production environment works
// unchanged.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// BaseURLFromEnv resolves the backend base URL from the environment,
// defaulting to DefaultBaseURL.
func BaseURLFromEnv() string {
	if v := os.Getenv(EnvBaseURL); v != "" {
		return v
	}
	return DefaultBaseURL
}

// OptionsFromEnv builds client options from the environment.
func OptionsFromEnv() []Option {
	opts := []Option{WithBaseURL(BaseURLFromEnv())}
	if org := os.Getenv(EnvOrgID); org != "" {
		opts = append(opts, WithDefaultOrg(org))
	}
	if os.Getenv(EnvDebug) != "" {
		opts = append(opts, WithSimpleLogger())
	}
	return opts
}

// NewFromEnv constructs a client from the environment, with explicit options
// applied afterwards so they win over environment values.
func NewFromEnv(options ...Option) *Client {
	return New(append(OptionsFromEnv(), options...)...)
}
