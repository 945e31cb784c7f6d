package security

import (
	"fmt"
	"os"
)

// PermConfigFile is the expected mode for config files holding API keys.
// rw------- (0600): only the owner can read or write.
const PermConfigFile os.FileMode = 0600

// IsWorldReadable checks if a file is readable by others.
// Returns true if the file has world-readable permissions (e.g., 0644, 0664).
func IsWorldReadable(perm os.FileMode) bool {
	return perm&0004 != 0
}

// IsWorldWritable checks if a file is writable by others.
func IsWorldWritable(perm os.FileMode) bool {
	return perm&0002 != 0
}

// ValidateSecurePermissions validates that a file holding credentials is
// neither world-readable nor world-writable.
func ValidateSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	perm := info.Mode().Perm()

	if IsWorldReadable(perm) {
		return fmt.Errorf("file %s is world-readable (%04o), which is insecure for credentials (expected %04o)", path, perm, PermConfigFile)
	}

	if IsWorldWritable(perm) {
		return fmt.Errorf("file %s is world-writable (%04o), which is a serious security risk", path, perm)
	}

	return nil
}
