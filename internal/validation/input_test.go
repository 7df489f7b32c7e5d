package validation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPathSafe(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errType error
	}{
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
			errType: ErrInvalidPath,
		},
		{
			name:    "safe relative path",
			path:    "foo/bar/baz",
			wantErr: false,
		},
		{
			name:    "safe absolute path",
			path:    "/foo/bar/baz",
			wantErr: false,
		},
		{
			name:    "path with null byte",
			path:    "foo\x00bar",
			wantErr: true,
			errType: ErrInvalidPath,
		},
		{
			name:    "path traversal",
			path:    "../etc/passwd",
			wantErr: true,
			errType: ErrPathTraversal,
		},
		{
			name:    "path with dot components only",
			path:    "./foo/./bar",
			wantErr: false,
		},
		{
			name:    "complex traversal attempt",
			path:    "foo/../../bar",
			wantErr: true,
			errType: ErrPathTraversal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IsPathSafe(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errType != nil {
					assert.ErrorIs(t, err, tt.errType)
				}
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errType error
	}{
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
			errType: ErrInvalidPath,
		},
		{
			name:    "relative path rejected",
			path:    "config.yml",
			wantErr: true,
			errType: ErrAbsolutePathRequired,
		},
		{
			name:    "valid absolute path",
			path:    "/etc/continueindex/config.yml",
			wantErr: false,
		},
		{
			name:    "absolute path with traversal",
			path:    "/etc/../../../etc/passwd",
			wantErr: true,
			errType: ErrPathTraversal,
		},
		{
			name:    "absolute path with null byte",
			path:    "/etc/config\x00.yml",
			wantErr: true,
			errType: ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateConfigPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errType != nil {
					assert.ErrorIs(t, err, tt.errType)
				}
				return
			}

			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(result))
			assert.NotContains(t, result, "..")
		})
	}
}

func BenchmarkIsPathSafe(b *testing.B) {
	path := "foo/bar/baz/qux/file.txt"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = IsPathSafe(path)
	}
}
