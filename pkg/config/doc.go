// Package config loads typed configuration structs from environment
// variables using github.com/caarlos0/env field tags, with optional .env
// file support via github.com/joho/godotenv.
//
// Every component in this codebase receives its configuration as an explicit
// struct; there is no package-level mutable configuration.
//
//	type WorkerConfig struct {
//		Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
//	}
//
//	var cfg WorkerConfig
//	config.MustLoad(&cfg)
package config
