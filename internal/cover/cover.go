// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cover assembles the cover fragment: placeholder replacement from
// a rules file and header text substitution. The stage is tolerant: a
// missing rules file means nothing to replace, not a failure.
// Implements: prd103-cover; docs/ARCHITECTURE § Cover Assembly.
package cover

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/nguyenthenguyen/docx"
	"go.yaml.in/yaml/v3"
)

// LoadRules reads a YAML placeholder → replacement mapping. A missing file
// returns an empty map.
func LoadRules(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cover rules %s: %w", path, err)
	}

	rules := map[string]string{}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing cover rules %s: %w", path, err)
	}
	return rules, nil
}

// Apply writes a copy of the cover fragment with every rule's placeholder
// replaced and, when headerText is set, the header placeholder swapped for
// it. Rules apply in sorted key order so reruns are deterministic.
func Apply(inputPath, outputPath string, rules map[string]string, headerPlaceholder, headerText string, w io.Writer) error {
	r, err := docx.ReadDocxFile(inputPath)
	if err != nil {
		return fmt.Errorf("opening cover fragment %s: %w", inputPath, err)
	}
	defer r.Close()

	d := r.Editable()

	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	replaced := 0
	for _, k := range keys {
		if err := d.Replace(k, rules[k], -1); err != nil {
			return fmt.Errorf("replacing %q in cover: %w", k, err)
		}
		replaced++
	}

	if headerText != "" && headerPlaceholder != "" {
		if err := d.ReplaceHeader(headerPlaceholder, headerText); err != nil {
			return fmt.Errorf("replacing cover header text: %w", err)
		}
	}

	if err := d.WriteToFile(outputPath); err != nil {
		return fmt.Errorf("writing assembled cover %s: %w", outputPath, err)
	}

	fmt.Fprintf(w, "cover: applied %d replacement rule(s)\n", replaced)
	return nil
}
