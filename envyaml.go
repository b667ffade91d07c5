package envyaml

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/envyaml/internal/dotenv"
	"github.com/eugenenazirov/envyaml/internal/flatten"
	"github.com/eugenenazirov/envyaml/internal/interpolate"
)

const (
	// StrictDisableEnv disables strict mode for every Load when present in
	// the process environment, whatever its value.
	StrictDisableEnv = "ENVYAML_STRICT_DISABLE"
	// YAMLFileEnv names the YAML file when WithYAMLFile is not used.
	YAMLFileEnv = "ENV_YAML_FILE"
	// EnvFileEnv names the dotenv file when WithEnvFile is not used.
	EnvFileEnv = "ENV_FILE"
	// DefaultYAMLFile is loaded when it exists and no other file was named.
	DefaultYAMLFile = "env.yaml"
	// DefaultEnvFile is loaded when it exists and no other file was named.
	DefaultEnvFile = ".env"
)

// Load builds a Config. Sources are merged in this order, later ones
// overwriting earlier ones: process environment, dotenv file, overrides,
// YAML document. The YAML text is interpolated against the first three
// before it is parsed.
func Load(opts ...Option) (*Config, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	strict := o.strict
	if _, disabled := os.LookupEnv(StrictDisableEnv); disabled && strict {
		logger.Debug("strict mode disabled by environment", zap.String("variable", StrictDisableEnv))
		strict = false
	}

	ctx := make(map[string]string)
	top := flatten.NewMap()
	set := func(k, v string) {
		ctx[k] = v
		top.Set(k, v)
	}

	if o.includeEnvironment {
		env := environ()
		for _, k := range sortedKeys(env) {
			if o.environmentKeys {
				set(k, env[k])
			} else {
				ctx[k] = env[k]
			}
		}
	}

	envFile := ""
	if !o.skipEnvFile {
		path, err := resolvePath(o.envFile, EnvFileEnv, DefaultEnvFile)
		if err != nil {
			return nil, err
		}
		envFile = path
	}
	dot, err := dotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	if dupErr := dot.Err(); dupErr != nil {
		if strict {
			return nil, dupErr
		}
		logger.Warn("dotenv variables defined several times",
			zap.String("env_file", envFile),
			zap.Strings("names", dot.Duplicates),
		)
	}
	for _, name := range dot.Names {
		set(name, dot.Values[name])
	}
	if o.exportEnvironment {
		if err := exportEnvironment(dot); err != nil {
			return nil, err
		}
	}

	for _, k := range sortedKeys(o.overrides) {
		set(k, o.overrides[k])
	}

	yamlFile, err := resolvePath(o.yamlFile, YAMLFileEnv, DefaultYAMLFile)
	if err != nil {
		return nil, err
	}
	doc, err := readYAML(yamlFile, ctx, strict, logger)
	if err != nil {
		return nil, err
	}

	var docFlat *flatten.Map
	if o.flatten {
		docFlat, err = flatten.Node(doc, flatten.WithSeparator(o.separator))
		if err != nil {
			return nil, fmt.Errorf("flatten %q: %w", yamlFile, err)
		}
	}

	docTop, err := topLevel(doc)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", yamlFile, err)
	}
	top.Merge(docTop)

	flat := top
	if o.flatten {
		flat = flatten.NewMap()
		for _, k := range top.Keys() {
			if !docTop.Has(k) {
				v, _ := top.Get(k)
				flat.Set(k, v)
			}
		}
		flat.Merge(docFlat)
	}

	raw := make(map[string]any, top.Len())
	for _, k := range top.Keys() {
		raw[k], _ = top.Get(k)
	}

	logger.Debug("configuration loaded",
		zap.String("yaml_file", yamlFile),
		zap.String("env_file", envFile),
		zap.Bool("strict", strict),
		zap.Int("keys", flat.Len()),
	)

	return &Config{
		flat:     flat,
		raw:      raw,
		strict:   strict,
		yamlFile: yamlFile,
		envFile:  envFile,
	}, nil
}

// readYAML interpolates and parses path. An empty path is an empty document.
func readYAML(path string, ctx map[string]string, strict bool, logger *zap.Logger) (*yaml.Node, error) {
	if path == "" {
		return nil, nil
	}

	// #nosec G304 -- the path is chosen by the caller.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml file: %w", err)
	}

	res, err := interpolate.Resolve(string(data), ctx, strict)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}
	if len(res.Missing) > 0 {
		logger.Warn("variables left unresolved",
			zap.String("yaml_file", path),
			zap.Strings("names", res.Missing),
		)
	}
	if len(res.Replacements) > 0 {
		spans := make([]string, len(res.Replacements))
		for i, r := range res.Replacements {
			spans[i] = r.Span
		}
		logger.Debug("variables resolved",
			zap.String("yaml_file", path),
			zap.Strings("spans", spans),
			zap.Strings("defaults", res.Defaults),
		)
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(res.Text), &node); err != nil {
		return nil, fmt.Errorf("parse yaml file %q: %w", path, err)
	}
	return &node, nil
}

// topLevel decodes the document root into an ordered map. A sequence root is
// keyed by index; any other root is empty.
func topLevel(doc *yaml.Node) (*flatten.Map, error) {
	out := flatten.NewMap()
	if doc == nil || doc.Kind == 0 {
		return out, nil
	}

	var root any
	if err := doc.Decode(&root); err != nil {
		return nil, err
	}

	switch typed := root.(type) {
	case map[string]any:
		for _, k := range mappingKeys(doc, typed) {
			out.Set(k, typed[k])
		}
	case map[any]any:
		byKey := make(map[string]any, len(typed))
		keys := make([]string, 0, len(typed))
		for k, v := range typed {
			s := fmt.Sprint(k)
			byKey[s] = v
			keys = append(keys, s)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out.Set(k, byKey[k])
		}
	case []any:
		for i, v := range typed {
			out.Set(strconv.Itoa(i), v)
		}
	}
	return out, nil
}

// mappingKeys returns the keys of decoded in document order, falling back to
// sorted order for keys introduced by merges.
func mappingKeys(doc *yaml.Node, decoded map[string]any) []string {
	keys := make([]string, 0, len(decoded))
	seen := make(map[string]struct{}, len(decoded))

	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(root.Content); i += 2 {
			k := root.Content[i].Value
			if _, ok := decoded[k]; !ok {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	var rest []string
	for k := range decoded {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// resolvePath picks explicit, then the env variable, then def when it exists.
func resolvePath(explicit, envName, def string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		return v, nil
	}
	if _, err := os.Stat(def); err == nil {
		return def, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat %q: %w", def, err)
	}
	return "", nil
}

func exportEnvironment(dot *dotenv.File) error {
	for _, name := range dot.Names {
		if err := os.Setenv(name, dot.Values[name]); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
