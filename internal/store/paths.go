package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFile is the name of the results database inside the data directory.
const DBFile = "results.db"

// DirName is the name of the smdsim data directory in the user's home.
const DirName = ".smdsim"

// DefaultDir returns the path to the global .smdsim directory.
// On Unix: ~/.smdsim
// On Windows: %USERPROFILE%\.smdsim
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// DBPath returns the results database path inside dir.
func DBPath(dir string) string {
	return filepath.Join(dir, DBFile)
}
