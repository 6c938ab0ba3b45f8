//go:build linux

package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"
)

// envMap is the environment file format: a map from variable name to value,
// where a null value marks a pass-through variable copied from the local
// environment if defined.
type envMap map[string]*string

func readEnvFile(path string) (envMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment file %s: %w", path, err)
	}

	var values envMap

	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parsing environment file %s: %w", path, err)
	}

	return values, nil
}

// buildEnviron combines the local environment with environment files and
// literal NAME=VALUE settings into the slice handed to the child. Later
// sources override earlier ones; pass-through entries leave the local value
// in place.
func buildEnviron(base, files, literal []string) ([]string, error) {
	combined := map[string]string{}

	for _, i := range base {
		if variable, value, ok := strings.Cut(i, "="); ok {
			combined[variable] = value
		}
	}

	for _, i := range files {
		entries, err := readEnvFile(i)
		if err != nil {
			return nil, err
		}

		for variable, value := range entries {
			if value != nil {
				combined[variable] = *value
			}
		}
	}

	for _, i := range literal {
		if variable, value, hasValue := strings.Cut(i, "="); hasValue {
			combined[variable] = value
		}
	}

	environ := maps.Keys(combined)

	sort.Strings(environ)

	for i, variable := range environ {
		environ[i] = variable + "=" + combined[variable]
	}

	return environ, nil
}
