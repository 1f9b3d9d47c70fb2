// Package config provides configuration management for the underwriter
// service.
//
// Configuration is read from YAML, laid over the defaults from
// DefaultConfig, optionally overridden from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("underwriter.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention UNDERWRITER_SECTION_FIELD:
//
//   - UNDERWRITER_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - UNDERWRITER_STRATEGY_PATH overrides strategy.path
//   - UNDERWRITER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// Commands initialize a process wide configuration once:
//
//	if err := config.Initialize(path); err != nil {
//	    return err
//	}
//	cfg := config.GetConfig()
//
// Library code takes a *Config explicitly instead.
package config
