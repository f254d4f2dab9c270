package adapters

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type archiveEntry struct {
	name    string
	body    string
	dir     bool
	symlink string
}

var sourceTree = []archiveEntry{
	{name: "libr-1.0/", dir: true},
	{name: "libr-1.0/include/", dir: true},
	{name: "libr-1.0/include/r.h", body: "#define R 1\n"},
	{name: "libr-1.0/configure", body: "#!/bin/sh\n"},
	{name: "libr-1.0/include/alias.h", symlink: "r.h"},
}

func writeTar(t *testing.T, w io.Writer, globalHeader bool, entries []archiveEntry) {
	t.Helper()
	tw := tar.NewWriter(w)
	if globalHeader {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Typeflag:   tar.TypeXGlobalHeader,
			Name:       "pax_global_header",
			PAXRecords: map[string]string{"comment": "0123456789abcdef"},
		}))
	}
	for _, entry := range entries {
		switch {
		case entry.dir:
			require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeDir, Name: entry.name, Mode: 0o755}))
		case entry.symlink != "":
			require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeSymlink, Name: entry.name, Linkname: entry.symlink}))
		default:
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeReg,
				Name:     entry.name,
				Mode:     0o755,
				Size:     int64(len(entry.body)),
			}))
			_, err := tw.Write([]byte(entry.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
}

func buildArchive(t *testing.T, name string, entries []archiveEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var buf bytes.Buffer
	switch filepath.Ext(name) {
	case ".gz":
		gz := gzip.NewWriter(&buf)
		writeTar(t, gz, true, entries)
		require.NoError(t, gz.Close())
	case ".xz":
		xw, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		writeTar(t, xw, false, entries)
		require.NoError(t, xw.Close())
	case ".zst":
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		writeTar(t, zw, false, entries)
		require.NoError(t, zw.Close())
	case ".tar":
		writeTar(t, &buf, false, entries)
	case ".zip":
		zw := zip.NewWriter(&buf)
		for _, entry := range entries {
			if entry.symlink != "" {
				continue
			}
			w, err := zw.Create(entry.name)
			require.NoError(t, err)
			if !entry.dir {
				_, err = w.Write([]byte(entry.body))
				require.NoError(t, err)
			}
		}
		require.NoError(t, zw.Close())
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestArchiveFormats(t *testing.T) {
	for _, name := range []string{"libr-1.0.tar.gz", "libr-1.0.tar.xz", "libr-1.0.tar.zst", "libr-1.0.tar", "libr-1.0.zip"} {
		t.Run(name, func(t *testing.T) {
			archive := buildArchive(t, name, sourceTree)
			adapter := NewArchiveAdapter()

			root, err := adapter.RootDir(archive)
			require.NoError(t, err)
			assert.Equal(t, "libr-1.0", root)

			dest := t.TempDir()
			require.NoError(t, adapter.Extract(t.Context(), archive, dest))
			header, err := os.ReadFile(filepath.Join(dest, "libr-1.0", "include", "r.h"))
			require.NoError(t, err)
			assert.Equal(t, "#define R 1\n", string(header))
			assert.FileExists(t, filepath.Join(dest, "libr-1.0", "configure"))
		})
	}
}

func TestArchiveSymlinks(t *testing.T) {
	archive := buildArchive(t, "libr-1.0.tar", sourceTree)
	dest := t.TempDir()
	require.NoError(t, NewArchiveAdapter().Extract(t.Context(), archive, dest))
	target, err := os.Readlink(filepath.Join(dest, "libr-1.0", "include", "alias.h"))
	require.NoError(t, err)
	assert.Equal(t, "r.h", target)
}

func TestArchiveRejectsEscapingEntries(t *testing.T) {
	cases := map[string]struct {
		entries []archiveEntry
		escaped string
	}{
		"parent path": {
			entries: []archiveEntry{{name: "../evil.txt", body: "x"}},
			escaped: "evil.txt",
		},
		"symlink to parent then file through it": {
			entries: []archiveEntry{
				{name: "libr-1.0/", dir: true},
				{name: "libr-1.0/link", symlink: "../.."},
				{name: "libr-1.0/link/pwned.txt", body: "x"},
			},
			escaped: "pwned.txt",
		},
		"absolute symlink": {
			entries: []archiveEntry{
				{name: "libr-1.0/abs", symlink: "/tmp"},
				{name: "libr-1.0/abs/pwned.txt", body: "x"},
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			archive := buildArchive(t, "evil.tar.gz", tc.entries)
			dest := filepath.Join(t.TempDir(), "dest")
			err := NewArchiveAdapter().Extract(t.Context(), archive, dest)
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			if tc.escaped != "" {
				assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), tc.escaped))
			}
		})
	}
}

func TestArchiveRejectsWritesThroughExistingSymlink(t *testing.T) {
	outside := t.TempDir()
	dest := filepath.Join(t.TempDir(), "dest")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "libr-1.0"), 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(dest, "libr-1.0", "out")))

	archive := buildArchive(t, "libr-1.0.tar", []archiveEntry{{name: "libr-1.0/out/pwned.txt", body: "x"}})
	err := NewArchiveAdapter().Extract(t.Context(), archive, dest)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.NoFileExists(t, filepath.Join(outside, "pwned.txt"))
}

func TestArchiveUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libr.rar")
	require.NoError(t, os.WriteFile(path, []byte("rar"), 0o644))
	_, err := NewArchiveAdapter().RootDir(path)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestArchiveEmpty(t *testing.T) {
	archive := buildArchive(t, "empty.tar", nil)
	_, err := NewArchiveAdapter().RootDir(archive)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestTopLevel(t *testing.T) {
	assert.Equal(t, "openmp-12.0.1.src", topLevel("openmp-12.0.1.src/runtime/CMakeLists.txt"))
	assert.Equal(t, "faiss-1.7.1", topLevel("./faiss-1.7.1/"))
	assert.Equal(t, "README", topLevel("README"))
}
