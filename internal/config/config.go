// Package config loads CLI defaults from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration file.
const DefaultPath = "~/.polly/config.yaml"

// YAML is a kong.ConfigurationLoader for a flat YAML document keyed by flag
// name, for example:
//
//	server: https://polls.example.com/
//	timeout: 10s
//	credentials_dir: /var/lib/polly
//
// Keys may use dashes or underscores. Commands may be nested as maps keyed
// by command name, e.g. "polls: {category: Sports}".
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var f kong.ResolverFunc = func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		for _, section := range commandPath(parent) {
			nested, ok := values[section].(map[string]any)
			if !ok {
				continue
			}
			if v, ok := lookup(nested, flag.Name); ok {
				return v, nil
			}
		}

		if v, ok := lookup(values, flag.Name); ok {
			return v, nil
		}

		return nil, nil
	}

	return f, nil
}

func lookup(values map[string]any, name string) (any, bool) {
	for _, key := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if v, ok := values[key]; ok {
			if _, isSection := v.(map[string]any); isSection {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

// commandPath returns the command names leading to parent, innermost first.
func commandPath(parent *kong.Path) []string {
	if parent == nil || parent.Node() == nil {
		return nil
	}

	var names []string
	for node := parent.Node(); node != nil && node.Type != kong.ApplicationNode; node = node.Parent {
		names = append(names, node.Name)
	}
	return names
}
