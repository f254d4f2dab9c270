package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ios-toolchain/internal/adapters"
	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

type stubLocator struct {
	tools map[string]string
}

func (l stubLocator) FindTool(_ context.Context, sdk string, tool string) (string, error) {
	return filepath.Join("/xcode", sdk, tool), nil
}

func (l stubLocator) SDKPath(_ context.Context, sdk string) (string, error) {
	return filepath.Join("/sdk", sdk), nil
}

func (l stubLocator) SDKVersions(context.Context) (string, string, error) {
	return "14.5", "14.5", nil
}

func (l stubLocator) LookPath(name string) (string, bool) {
	path, ok := l.tools[name]
	return path, ok
}

// touchRunner records commands and creates the files named by "touch".
type touchRunner struct {
	mu       sync.Mutex
	commands []types.Command
}

func (r *touchRunner) Run(_ context.Context, cmd types.Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	if cmd.Name != "touch" {
		return nil
	}
	for _, arg := range cmd.Args {
		if err := os.WriteFile(filepath.Join(cmd.Dir, arg), nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}

type recordingMerger struct {
	outputs []string
}

func (m *recordingMerger) Merge(_ context.Context, output string, slices []types.LibrarySlice) error {
	m.outputs = append(m.outputs, output)
	archs := ""
	for i, slice := range slices {
		if i > 0 {
			archs += ","
		}
		archs += slice.Arch
	}
	return os.WriteFile(output, []byte(archs), 0o644)
}

// dirArchive pretends every archive unpacks to {root}/include/{header}.
type dirArchive struct {
	root string
}

func (a dirArchive) RootDir(string) (string, error) {
	return a.root, nil
}

func (a dirArchive) Extract(_ context.Context, _ string, destDir string) error {
	include := filepath.Join(destDir, a.root, "include")
	if err := os.MkdirAll(include, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(include, "r.h"), []byte("#pragma once\n"), 0o644)
}

type countingDownloader struct {
	urls []string
}

func (d *countingDownloader) Download(_ context.Context, url string, dest string) error {
	d.urls = append(d.urls, url)
	return os.WriteFile(dest, []byte("archive"), 0o644)
}

type memMirror struct {
	objects map[string]bool
	stored  []string
	fetched []string
}

func (m *memMirror) Fetch(_ context.Context, key string, dest string) (bool, error) {
	m.fetched = append(m.fetched, key)
	if !m.objects[key] {
		return false, nil
	}
	return true, os.WriteFile(dest, []byte("mirrored"), 0o644)
}

func (m *memMirror) Store(_ context.Context, key string, _ string) error {
	m.stored = append(m.stored, key)
	return nil
}

func (m *memMirror) Download(context.Context, string, string) error {
	return errors.New("unexpected s3 download")
}

type testService struct {
	Service
	runner     *touchRunner
	merger     *recordingMerger
	downloader *countingDownloader
}

func newTestService(root string) testService {
	runner := &touchRunner{}
	merger := &recordingMerger{}
	downloader := &countingDownloader{}
	return testService{
		Service: Service{
			Locator:      stubLocator{tools: map[string]string{"python3": "/usr/bin/python3"}},
			Runner:       runner,
			Merger:       merger,
			Archive:      dirArchive{root: "libr-1.0"},
			HTTP:         downloader,
			RecipeSource: adapters.NewRecipeFileAdapter(),
			OpenState: func(path string) ports.StatePort {
				return adapters.NewStateFileAdapter(path)
			},
			Environ: func() []string {
				return []string{"PATH=/usr/bin", "CFLAGS=-march=native", "HOME=" + root}
			},
			Clock: func() time.Time {
				return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
			},
		},
		runner:     runner,
		merger:     merger,
		downloader: downloader,
	}
}

const librRecipe = `version: "1.0"
url: https://example.org/libr-{version}.tar.gz
library: libr.a
include_dirs:
  - source: include/r.h
build:
  "*":
    - run: [touch, libr.a]
`

func writeRecipe(t *testing.T, dir string, name string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name, "recipe.yaml"), []byte(content), 0o644))
}
