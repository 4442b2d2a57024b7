package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadDirectory merges every config file of a directory in name order, so
// later files override earlier ones. Subdirectories are not read.
func LoadDirectory(dirPath string) (*Config, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && decoderFor(entry.Name()) != nil {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no yaml or json files found in directory: %s", dirPath)
	}
	sort.Strings(names)

	merged, err := ParseFile(filepath.Join(dirPath, names[0]))
	if err != nil {
		return nil, err
	}
	for _, name := range names[1:] {
		next, err := ParseFile(filepath.Join(dirPath, name))
		if err != nil {
			return nil, err
		}
		merged = Merge(merged, next)
	}
	merged.basePath = dirPath
	return merged, nil
}
