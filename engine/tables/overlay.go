package tables

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load builds a table set from the builtin data merged with an optional YAML
// overlay file. An empty path returns the builtin set unchanged.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	overlay, err := loadData(path)
	if err != nil {
		return nil, err
	}
	return New(Merge(Builtin(), overlay))
}

func loadData(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("read tables overlay: %w", err)
	}
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("parse tables overlay: %w", err)
	}
	return d, nil
}

// Merge layers overlay on top of base. Map entries in the overlay add to or
// replace base entries; manufacturers and submodel rules are appended, with
// overlay submodel rules replacing base rules for the same manufacturer.
func Merge(base, overlay Data) Data {
	out := Data{
		Prefixes:  make(map[string]string, len(base.Prefixes)+len(overlay.Prefixes)),
		YearCodes: make(map[string]int, len(base.YearCodes)+len(overlay.YearCodes)),
		Variants:  make(map[string]string, len(base.Variants)+len(overlay.Variants)),
	}
	for k, v := range base.Prefixes {
		out.Prefixes[k] = v
	}
	for k, v := range overlay.Prefixes {
		out.Prefixes[k] = v
	}
	for k, v := range base.YearCodes {
		out.YearCodes[k] = v
	}
	for k, v := range overlay.YearCodes {
		out.YearCodes[k] = v
	}
	for k, v := range base.Variants {
		out.Variants[k] = v
	}
	for k, v := range overlay.Variants {
		out.Variants[k] = v
	}

	out.Manufacturers = append(out.Manufacturers, base.Manufacturers...)
	out.Manufacturers = append(out.Manufacturers, overlay.Manufacturers...)

	replaced := make(map[string]bool, len(overlay.Submodels))
	for _, rule := range overlay.Submodels {
		replaced[rule.Manufacturer] = true
	}
	for _, rule := range base.Submodels {
		if !replaced[rule.Manufacturer] {
			out.Submodels = append(out.Submodels, rule)
		}
	}
	out.Submodels = append(out.Submodels, overlay.Submodels...)

	return out
}
