// Package config provides configuration loading and validation for the
// counseling audio service. It handles YAML-based configuration with struct
// validation for the HTTP server, AI providers, storage, and logging.
package config
