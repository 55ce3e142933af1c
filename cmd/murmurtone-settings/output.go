package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q: use text, json or yaml", format)
	}
}

// render writes v in the requested format. Text output prints trees as
// sorted "key = value" lines and everything else as compact JSON.
func render(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	default:
		return renderText(w, v)
	}
}

func renderText(w io.Writer, v any) error {
	tree, ok := v.(settings.Tree)
	if !ok {
		if m, isMap := v.(map[string]any); isMap {
			tree, ok = settings.Tree(m), true
		}
	}
	if !ok {
		line, err := textValue(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, line)

		return err
	}

	keys := make([]string, 0, len(tree))
	for key := range tree {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		line, err := textValue(tree[key])
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s = %s\n", key, line); err != nil {
			return err
		}
	}

	return nil
}

func textValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}

	return string(raw), nil
}

// parseValue reads a command line value as JSON so numbers, booleans, lists
// and records keep their type. Anything that is not valid JSON is a string.
func parseValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return raw
	}

	return v
}

func displayValue(v any) string {
	line, err := textValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return line
}
