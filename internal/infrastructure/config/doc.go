// Package config handles loading and validating Home Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The home section carries the domain data that used to be hard-coded in the
// dispatcher: the MQTT topic map, the externally controllable device list
// (with their command-matching substrings), and the low-stock threshold.
//
// Security Considerations:
//   - Sensitive values (broker credentials, tokens) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Home.Topics.Control)
package config
