package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveInstructions returns the participant's inline instructions
// followed by the contents of its instruction files, separated by blank
// lines. Relative paths resolve against basePath.
func (p Participant) ResolveInstructions(basePath string) (string, error) {
	var parts []string
	if text := strings.TrimSpace(p.Instructions); text != "" {
		parts = append(parts, text)
	}
	for _, pattern := range p.InstructionsFiles {
		files, err := expandPattern(basePath, pattern)
		if err != nil {
			return "", fmt.Errorf("participant %s: %w", p.ID, err)
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return "", fmt.Errorf("participant %s: failed to read %s: %w", p.ID, file, err)
			}
			if text := strings.TrimSpace(string(data)); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func expandPattern(basePath, pattern string) ([]string, error) {
	resolved := pattern
	if !filepath.IsAbs(pattern) && basePath != "" {
		resolved = filepath.Join(basePath, pattern)
	}
	if !containsWildcards(pattern) {
		if _, err := os.Stat(resolved); err != nil {
			return nil, fmt.Errorf("unable to read file %s: %w", resolved, err)
		}
		return []string{resolved}, nil
	}
	matches, err := doublestar.FilepathGlob(resolved, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to expand wildcard pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pattern %s matched no files", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

func containsWildcards(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
