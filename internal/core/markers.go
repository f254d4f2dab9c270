package core

import (
	"os"
	"path/filepath"

	"ios-toolchain/internal/types"
)

func markerPath(buildDir string, marker types.Marker) string {
	return filepath.Join(buildDir, "."+string(marker))
}

func HasMarker(buildDir string, marker types.Marker) bool {
	_, err := os.Stat(markerPath(buildDir, marker))
	return err == nil
}

func SetMarker(buildDir string, marker types.Marker) error {
	if err := os.WriteFile(markerPath(buildDir, marker), []byte("ok"), 0o644); err != nil {
		return fsError("failed to set "+string(marker)+" marker", err)
	}
	return nil
}

// DeleteMarker removes marker; a missing marker is not an error.
func DeleteMarker(buildDir string, marker types.Marker) error {
	if err := os.Remove(markerPath(buildDir, marker)); err != nil && !os.IsNotExist(err) {
		return fsError("failed to delete "+string(marker)+" marker", err)
	}
	return nil
}
