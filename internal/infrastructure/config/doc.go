// Package config handles loading and validating plua2 configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a .env file for credentials (godotenv)
//   - Overriding with PLUA2_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Controller credentials should be set via environment variables or .env
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Remote.URL)
//
// A missing config file is not an error: the emulator runs on defaults plus
// environment, which is the common case for running scripts locally.
package config
