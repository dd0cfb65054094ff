// internal/replay/state.go
package replay

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadOffset reads the index of the next flow to send.
// Returns 0 if the file doesn't exist or is corrupt.
func ReadOffset(path string) (int, error) {
	if path == "" {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		// Corrupt file - fresh start
		return 0, nil
	}

	return n, nil
}

// WriteOffset writes the offset to the state file.
// Creates parent directories if needed. An empty path keeps no state.
func WriteOffset(path string, offset int) error {
	if path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(strconv.Itoa(offset)), 0644)
}
