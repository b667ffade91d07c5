// Package envyaml loads YAML configuration files whose values refer to
// environment variables.
//
// A configuration is built from, in increasing priority, the process
// environment, an optional dotenv file, explicit overrides and the YAML
// document itself. Before the YAML text is parsed, references are replaced
// with values from the first three sources:
//
//	database:
//	  user: $DB_USER
//	  password: ${DB_PASSWORD}
//	  host: ${DB_HOST|localhost}
//	  query: SELECT * FROM users WHERE id = $1
//	price: $$5
//
// "$$" is an escape for "$" and "$1"-style placeholders are never
// substituted. In strict mode (the default) a reference without a value and
// without a default makes Load fail with *UndefinedVariableError; setting
// ENVYAML_STRICT_DISABLE in the environment turns strict mode off for every
// load.
//
// Nested values are reachable by joined paths:
//
//	cfg, err := envyaml.Load(envyaml.WithYAMLFile("config.yaml"))
//	if err != nil {
//		return err
//	}
//	host := cfg.Get("database.host", "localhost")
//	port, err := cfg.Lookup("database.port")
package envyaml
