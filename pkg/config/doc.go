// Package config loads typed configuration structs from the environment and
// optional YAML files.
//
// It wraps github.com/caarlos0/env/v11 for tag-driven parsing,
// github.com/joho/godotenv for .env files and gopkg.in/yaml.v3 for file-based
// configuration:
//
//	var cfg taskqueue.Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
//	var app AppConfig
//	if err := config.LoadYAML("tickqueue.yaml", &app); err != nil {
//	    log.Fatal(err)
//	}
//
// Load caches one parsed copy per type for the process lifetime; ResetCache
// clears it between tests. LoadYAML is never cached and applies, in order,
// envDefault tags, the file contents and any environment variable that is set.
//
// Errors are sentinel values (ErrParsingConfig, ErrReadingFile,
// ErrDecodingYAML, ErrLoadingEnvFile, ErrNilPointer) joined with the
// underlying cause, so errors.Is works on every returned error.
package config
