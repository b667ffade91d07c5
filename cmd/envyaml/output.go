package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/envyaml"
	"github.com/eugenenazirov/envyaml/internal/flatten"
)

const (
	formatJSON   = "json"
	formatYAML   = "yaml"
	formatDotenv = "dotenv"
)

// writeValue prints strings verbatim and everything else as YAML.
func writeValue(w io.Writer, value any) error {
	if s, ok := value.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func writeExport(w io.Writer, cfg *envyaml.Config, format string, flat bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(flatten.StringKeys(exportMap(cfg, flat))); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil

	case formatYAML:
		data, err := yaml.Marshal(exportMap(cfg, flat))
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(data)
		return err

	case formatDotenv:
		content, err := godotenv.Marshal(dotenvMap(cfg))
		if err != nil {
			return fmt.Errorf("encode dotenv: %w", err)
		}
		if content == "" {
			return nil
		}
		_, err = fmt.Fprintln(w, content)
		return err
	}
	return fmt.Errorf("unsupported format %q", format)
}

func exportMap(cfg *envyaml.Config, flat bool) map[string]any {
	if !flat {
		return cfg.Export()
	}
	out := make(map[string]any, cfg.Len())
	for _, key := range cfg.Keys() {
		out[key] = cfg.Get(key, nil)
	}
	return out
}

// dotenvMap keeps the scalar leaves of the flattened configuration. Nested
// values are reachable through their own flattened keys.
func dotenvMap(cfg *envyaml.Config) map[string]string {
	out := make(map[string]string, cfg.Len())
	for _, key := range cfg.Keys() {
		switch v := cfg.Get(key, nil).(type) {
		case map[string]any, map[any]any, []any:
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}
