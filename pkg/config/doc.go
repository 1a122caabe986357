// Package config loads typed configuration structs from environment
// variables, optionally seeded from .env files.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11 behind a
// small cached API: each configuration type is parsed at most once per
// process and served from cache afterwards, so components can call Load for
// their own config without coordinating startup order.
//
// # Usage
//
//	var cfg flow.MagicLinkConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Call LoadEnv before the first Load to seed the environment from specific
// .env files; otherwise the default .env in the working directory is tried
// once and silently skipped when absent.
//
// ResetCache and ForceReloadConfig exist for tests that mutate the process
// environment between loads.
package config
