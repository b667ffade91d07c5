package envyaml

import (
	"go.uber.org/zap"

	"github.com/eugenenazirov/envyaml/internal/flatten"
)

// Option configures Load.
type Option func(*options)

type options struct {
	yamlFile           string
	envFile            string
	includeEnvironment bool
	environmentKeys    bool
	skipEnvFile        bool
	strict             bool
	overrides          map[string]string
	separator          string
	flatten            bool
	exportEnvironment  bool
	logger             *zap.Logger
}

func defaultOptions() options {
	return options{
		includeEnvironment: true,
		environmentKeys:    true,
		strict:             true,
		overrides:          map[string]string{},
		separator:          flatten.DefaultSeparator,
		flatten:            true,
		logger:             zap.NewNop(),
	}
}

// WithYAMLFile sets the YAML file to load. It takes precedence over the
// ENV_YAML_FILE variable and the env.yaml default.
func WithYAMLFile(path string) Option {
	return func(o *options) {
		o.yamlFile = path
	}
}

// WithEnvFile sets the dotenv file to load. It takes precedence over the
// ENV_FILE variable and the .env default.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
	}
}

// WithoutEnvironment keeps process environment variables out of both the
// substitution context and the resulting configuration.
func WithoutEnvironment() Option {
	return func(o *options) {
		o.includeEnvironment = false
	}
}

// WithoutEnvironmentKeys keeps process environment variables available for
// substitution but leaves them out of the resulting configuration, so only
// dotenv, override and YAML keys are exposed.
func WithoutEnvironmentKeys() Option {
	return func(o *options) {
		o.environmentKeys = false
	}
}

// WithoutEnvFile skips the dotenv file, ignoring ENV_FILE and the .env
// default.
func WithoutEnvFile() Option {
	return func(o *options) {
		o.skipEnvFile = true
	}
}

// WithStrict toggles strict mode (enabled by default). The
// ENVYAML_STRICT_DISABLE variable disables it regardless.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithOverrides adds variables that win over the environment and the dotenv
// file. Repeated calls accumulate.
func WithOverrides(values map[string]string) Option {
	return func(o *options) {
		for k, v := range values {
			o.overrides[k] = v
		}
	}
}

// WithSeparator changes the string joining nested keys. Defaults to ".".
func WithSeparator(sep string) Option {
	return func(o *options) {
		if sep != "" {
			o.separator = sep
		}
	}
}

// WithoutFlatten only exposes top-level keys.
func WithoutFlatten() Option {
	return func(o *options) {
		o.flatten = false
	}
}

// WithExportEnvironment writes every dotenv entry into the process
// environment (os.Setenv) once, before the YAML file is resolved.
func WithExportEnvironment() Option {
	return func(o *options) {
		o.exportEnvironment = true
	}
}

// WithLogger sets the logger used during Load. Nil is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
