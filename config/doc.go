// Package config loads the load balancer configuration from a YAML file and
// environment variables, validates it, and watches the file for changes.
//
// Environment variables override file values with dots replaced by
// underscores, e.g. STRATEGY_TYPE=ip-hash overrides strategy.type.
package config
