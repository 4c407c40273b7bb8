// Package config provides centralized configuration for the wrong-answer
// statistics service. A single Config struct carries every tunable the
// server and CLI need, so the rest of the codebase never reads the
// environment directly.
//
// Configuration sources are merged in ascending precedence:
//
//  1. Built-in defaults (Default)
//  2. An optional YAML file, either named by ODAPSTAT_CONFIG or found at
//     config.yaml / configs/config.yaml
//  3. Environment variables with the ODAPSTAT_ prefix
//
// A .env file in the working directory is loaded first when present, so
// local development can keep its variables out of the shell profile.
//
// Environment variable names follow the struct layout:
//
//	ODAPSTAT_SERVER_PORT=8080
//	ODAPSTAT_LOGGING_LEVEL=debug
//	ODAPSTAT_UPLOAD_MAX_SIZE=10485760
//	ODAPSTAT_REPORT_DEFAULT_TITLE="8월 Final mock 1"
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
//
// Load validates the merged result and rejects out-of-range ports,
// non-positive timeouts, and upload or report limits that would make the
// service unusable.
package config
