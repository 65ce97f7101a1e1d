package secret

import "errors"

var (
	// ErrProviderNotRegistered is returned for a reference to an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider is not registered")

	// ErrInvalidRef is returned for a malformed secret reference.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrSecretNotFound is returned when a provider has no value for a reference.
	ErrSecretNotFound = errors.New("secret: not found")

	// ErrEmptySecret is returned by strict resolvers for empty values.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrMissingEnv is returned when a ${VAR} reference is unset.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrInvalidConfig is returned by provider factories for unusable configuration.
	ErrInvalidConfig = errors.New("secret: invalid provider config")
)
