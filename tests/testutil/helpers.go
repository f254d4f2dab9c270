// Package testutil provides shared test helpers used by the integration
// tests.
package testutil

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"ios-toolchain/internal/adapters"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// WriteTarGz writes a gzip compressed tarball holding files (path → content)
// under a single top-level directory.
func WriteTarGz(t *testing.T, path string, root string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: root + "/", Typeflag: tar.TypeDir, Mode: 0o755}))
	for _, name := range names {
		content := files[name]
		mode := int64(0o644)
		if strings.HasSuffix(name, ".sh") {
			mode = 0o755
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     root + "/" + name,
			Typeflag: tar.TypeReg,
			Mode:     mode,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

// ScriptedLocator is a locator that answers xcrun and xcodebuild queries
// with fixed paths so pipelines can run on hosts without Xcode.
func ScriptedLocator() *adapters.XcrunLocatorAdapter {
	locator := adapters.NewXcrunLocatorAdapter()
	locator.Output = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name == "xcodebuild" {
			return []byte("iOS 14.5 -sdk iphoneos14.5\niOS Simulator 14.5 -sdk iphonesimulator14.5\n"), nil
		}
		if args[len(args)-1] == "--show-sdk-path" {
			return []byte(filepath.Join("/sdk", args[1]) + "\n"), nil
		}
		return []byte(filepath.Join("/xcode", args[len(args)-1]) + "\n"), nil
	}
	return locator
}
