// Package config provides configuration management for the tidy application.
//
// It defines the Configuration kind (vault location, global exclusion, and
// rulesets) and provides a single API for loading, validating, and writing
// configuration files in YAML format.
package config
