package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrReadingFile is returned when a configuration file cannot be read.
	ErrReadingFile = errors.New("failed to read configuration file")

	// ErrDecodingYAML is returned when a configuration file is not valid YAML for the target struct.
	ErrDecodingYAML = errors.New("failed to decode yaml configuration")

	// ErrLoadingEnvFile is returned when an explicit .env file cannot be loaded.
	ErrLoadingEnvFile = errors.New("failed to load env file")

	// ErrNilPointer is returned when a nil pointer is provided to a loader.
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)
