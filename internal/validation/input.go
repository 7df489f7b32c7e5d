// Package validation provides security-focused input validation utilities.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidPath indicates an invalid or unsafe path.
	ErrInvalidPath = fmt.Errorf("invalid or unsafe path")

	// ErrPathTraversal indicates a path traversal attempt.
	ErrPathTraversal = fmt.Errorf("path traversal attempt detected")

	// ErrAbsolutePathRequired indicates an absolute path was required but not provided.
	ErrAbsolutePathRequired = fmt.Errorf("absolute path required")
)

// IsPathSafe performs lightweight checks on a path without filesystem access.
// It checks for common unsafe patterns but doesn't verify the path exists.
// The walker calls this on every relative path it yields.
func IsPathSafe(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	// Check for null bytes
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("%w: contains null byte", ErrInvalidPath)
	}

	// Check for parent directory traversal
	if strings.Contains(path, "..") {
		return fmt.Errorf("%w: contains parent directory reference", ErrPathTraversal)
	}

	// Check cleaned path
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("%w: cleaned path contains ..", ErrPathTraversal)
	}

	return nil
}

// ValidateConfigPath validates a configuration file path.
// Config files must be absolute paths to prevent ambiguity.
func ValidateConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty config path", ErrInvalidPath)
	}

	// Config paths must be absolute
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: config path must be absolute", ErrAbsolutePathRequired)
	}

	// Basic safety checks
	if err := IsPathSafe(path); err != nil {
		return "", err
	}

	cleaned := filepath.Clean(path)
	return cleaned, nil
}
