// Package pathutil provides safe path handling for input and output files.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateInputPath validates a path to an input data file.
// The file must exist and be a regular file.
func ValidateInputPath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("input file %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("input path %s is a directory, expected a file", path)
	}

	return absPath, nil
}

// ValidateConfigPath validates a configuration file path.
// Config files are expected to be YAML files.
func ValidateConfigPath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	return absPath, nil
}

// ValidateOutputPath validates an output destination for a report.
// The parent directory must already exist so the run can fail before
// any aggregation work instead of after it.
func ValidateOutputPath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	dir := filepath.Dir(absPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("output directory does not exist: %s", dir)
	}

	return absPath, nil
}

// SafeSheetName converts a tier name into a legal worksheet name:
// at most maxLen runes, with path separators replaced.
func SafeSheetName(name string, maxLen int) string {
	s := strings.ReplaceAll(name, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return s
}
