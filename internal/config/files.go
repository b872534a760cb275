package config

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveInputs expands the input glob patterns into a sorted, deduplicated
// list of XML source files, with the exclude patterns removed. Patterns may
// use ** to match any number of directories; invalid patterns are skipped.
func (c *Config) ResolveInputs(rootPath string) ([]string, error) {
	fileSet := make(map[string]bool)
	for _, pattern := range c.Inputs {
		for _, match := range expandGlob(rootPath, pattern) {
			if strings.EqualFold(filepath.Ext(match), ".xml") {
				fileSet[match] = true
			}
		}
	}
	for _, pattern := range c.Exclude {
		for _, match := range expandGlob(rootPath, pattern) {
			delete(fileSet, match)
		}
	}

	result := make([]string, 0, len(fileSet))
	for f := range fileSet {
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

func expandGlob(rootPath, pattern string) []string {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(rootPath, pattern)
	}
	if !strings.Contains(pattern, "**") {
		matches, _ := filepath.Glob(pattern)
		return matches
	}

	// The part before ** is a fixed directory to walk; the part after is
	// matched against every file below it.
	base, suffix, _ := strings.Cut(pattern, "**")
	baseDir := filepath.Clean(base)
	if baseDir == "" {
		baseDir = "."
	}
	suffix = strings.TrimPrefix(suffix, string(filepath.Separator))

	var results []string
	filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if suffix == "" {
			results = append(results, path)
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err == nil && matchSuffix(rel, suffix) {
			results = append(results, path)
		}
		return nil
	})
	return results
}

// matchSuffix matches a walked path against the pattern that followed **.
// A bare file pattern matches the basename; a pattern with directory parts
// matches the relative path or any tail of it.
func matchSuffix(path, pattern string) bool {
	if !strings.Contains(pattern, string(filepath.Separator)) {
		ok, _ := filepath.Match(pattern, filepath.Base(path))
		return ok
	}
	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	if len(path) > len(pattern) {
		ok, _ := filepath.Match(pattern, path[len(path)-len(pattern):])
		return ok
	}
	return false
}
