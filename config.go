package envyaml

import (
	"github.com/eugenenazirov/envyaml/internal/flatten"
)

// Config is an immutable, merged configuration. It is safe for concurrent
// use. Build a new one with Load to pick up changes.
type Config struct {
	flat     *flatten.Map
	raw      map[string]any
	strict   bool
	yamlFile string
	envFile  string
}

// Get returns the value stored at path, or def when path is absent.
// Composite values are returned as copies.
func (c *Config) Get(path string, def any) any {
	if v, ok := c.flat.Get(path); ok {
		return deepCopy(v)
	}
	return def
}

// Lookup returns the value stored at path. Absent keys yield a
// *KeyNotFoundError.
func (c *Config) Lookup(path string) (any, error) {
	v, ok := c.flat.Get(path)
	if !ok {
		return nil, &KeyNotFoundError{Key: path}
	}
	return deepCopy(v), nil
}

// Contains reports whether path is present.
func (c *Config) Contains(path string) bool {
	return c.flat.Has(path)
}

// Keys returns every path: environment and dotenv names first, then YAML
// paths in document order.
func (c *Config) Keys() []string {
	return c.flat.Keys()
}

// Len returns the number of paths.
func (c *Config) Len() int {
	return c.flat.Len()
}

// Export returns a deep copy of the merged configuration before
// flattening.
func (c *Config) Export() map[string]any {
	out := make(map[string]any, len(c.raw))
	for k, v := range c.raw {
		out[k] = deepCopy(v)
	}
	return out
}

// Strict reports whether strict mode was in effect for this load.
func (c *Config) Strict() bool {
	return c.strict
}

// YAMLFile returns the YAML file that was loaded, or "".
func (c *Config) YAMLFile() string {
	return c.yamlFile
}

// EnvFile returns the dotenv file that was loaded, or "".
func (c *Config) EnvFile() string {
	return c.envFile
}

func deepCopy(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, child := range typed {
			out[k] = deepCopy(child)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(typed))
		for k, child := range typed {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}
