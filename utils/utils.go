// Package utils provides small path helpers shared by the commands.
package utils

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands tilde and all environment variables from the given
// path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// EnsureDir creates the parent directory of path when it is missing.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700) //nolint:mnd
}
