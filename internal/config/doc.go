// Package config loads the settings of the configuration server from a YAML
// settings file (read through envyaml, so it may refer to environment
// variables), environment variables and CLI flags, with precedence:
// CLI flags > Environment variables > YAML settings file > Defaults.
package config
