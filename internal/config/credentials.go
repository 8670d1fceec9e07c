package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

// Keys read from the .env file.
const (
	EnvBaseURL = "PAC_STAGE_API_BASE_URL"
	EnvAPIKey  = "PAC_STAGE_API_KEY"
)

// DefaultEnvPath is where a developer checkout keeps its .env, one level
// above the directory the probe is run from.
const DefaultEnvPath = "../.env"

// ErrMissingConfiguration is returned when the .env file or one of the
// required keys in it is absent.
var ErrMissingConfiguration = errors.New("missing configuration")

// missingError reads as its own message but matches
// ErrMissingConfiguration under errors.Is.
type missingError struct {
	msg string
}

func (e *missingError) Error() string { return e.msg }

func (e *missingError) Unwrap() error { return ErrMissingConfiguration }

func missingKey(key string) error {
	return &missingError{msg: key + " not found in .env file"}
}

// Credentials is the base URL and API key pair a probe authenticates with.
type Credentials struct {
	BaseURL string
	APIKey  string
}

// LoadCredentials reads the KEY=value file at path and returns the PAC
// credentials from it. The process environment is never modified.
func LoadCredentials(path string) (Credentials, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return Credentials{}, &missingError{msg: fmt.Sprintf("reading %s: %v", path, err)}
	}

	baseURL := strings.TrimSpace(values[EnvBaseURL])
	if baseURL == "" {
		return Credentials{}, missingKey(EnvBaseURL)
	}
	apiKey := strings.TrimSpace(values[EnvAPIKey])
	if apiKey == "" {
		return Credentials{}, missingKey(EnvAPIKey)
	}

	return Credentials{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
	}, nil
}
