// Package config provides configuration structures and utilities for SEOScan.
//
// Configuration is layered: built-in defaults, the YAML file
// (.seoscan.yaml), SEOSCAN_* environment variables, then CLI flags.
// Config.Validate rejects invalid bounds before any request is sent;
// every validation error wraps ErrConfig.
package config
