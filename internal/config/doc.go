// Package config loads the YAML configuration shared by the binaries.
//
// Loading order is defaults, then the YAML file, then AUTHSESSION_*
// environment variables, then validation.
package config
