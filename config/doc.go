// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and CODERUNNER_* environment variables. It
// covers the transport settings, the sandbox limits (wall-clock timeout,
// code and input length caps, workspace root) and per-language toolchain
// overrides. Configuration is read once at startup.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Timeout: %s\n", cfg.GetTimeout())
package config
