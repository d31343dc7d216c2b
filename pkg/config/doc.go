// Package config loads typed configuration structs from environment
// variables using github.com/caarlos0/env, with optional .env file support
// via github.com/joho/godotenv.
//
// Parsed configurations are cached per type for the lifetime of the process,
// so the resolver, the connection router, and the aggregator all see the same
// values no matter which one loads its config first.
package config
