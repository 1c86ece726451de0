package build

import (
	"fmt"
	"os"
)

// atomicWrite writes to a temp file beside finalPath, syncs and closes
// it, then renames it into place. On any failure the temp file is
// removed and the original is left untouched.
func atomicWrite(finalPath string, writeFunc func(*os.File) error) error {
	tempPath := finalPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("build: create temp file: %w", err)
	}

	writeErr := writeFunc(file)

	if syncErr := file.Sync(); syncErr != nil && writeErr == nil {
		writeErr = syncErr
	}
	if closeErr := file.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("build: write failed: %w", writeErr)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("build: rename temp file: %w", err)
	}
	return nil
}
