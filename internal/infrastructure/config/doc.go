// Package config handles loading and validating Edge Mining Core configuration.
//
// Configuration is layered: built-in defaults, then the YAML file, then
// EDGEMINING_* environment variables. Validate reports every problem in a
// single error.
//
// Sensitive values (JWT secret, broker password) should come from the
// environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Node.Name)
package config
