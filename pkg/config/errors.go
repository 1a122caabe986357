package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the config struct.
	ErrParsingConfig = errors.New("config.parsing_failed")

	// ErrConfigNotLoaded is returned when a config type failed to load and
	// is requested again.
	ErrConfigNotLoaded = errors.New("config.not_loaded")

	// ErrNilPointer is returned when a nil pointer is provided to Load.
	ErrNilPointer = errors.New("config.nil_pointer")

	// ErrLoadingEnv wraps godotenv failures for explicit .env paths.
	ErrLoadingEnv = errors.New("config.env_load_failed")
)
