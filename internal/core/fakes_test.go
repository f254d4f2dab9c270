package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

type memState struct {
	data   map[string]any
	failOn string
}

func newMemState() *memState {
	return &memState{data: map[string]any{}}
}

func (s *memState) Get(key string) (any, bool) {
	value, ok := s.data[key]
	return value, ok
}

func (s *memState) GetString(key string) (string, bool) {
	value, ok := s.data[key].(string)
	return value, ok
}

func (s *memState) Contains(key string) bool {
	_, ok := s.data[key]
	return ok
}

func (s *memState) Set(key string, value any) error {
	if s.failOn != "" && key == s.failOn {
		return errors.New("disk full")
	}
	s.data[key] = value
	return nil
}

func (s *memState) Delete(key string) error {
	delete(s.data, key)
	return nil
}

func (s *memState) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type fakeLocator struct{}

func (fakeLocator) FindTool(_ context.Context, sdk string, tool string) (string, error) {
	return "/xcode/" + sdk + "/" + tool, nil
}

func (fakeLocator) SDKPath(_ context.Context, sdk string) (string, error) {
	return "/sdk/" + sdk, nil
}

func (fakeLocator) SDKVersions(context.Context) (string, string, error) {
	return "14.5", "14.5", nil
}

func (fakeLocator) LookPath(string) (string, bool) {
	return "", false
}

type fakeDownloader struct {
	calls int
	err   error
}

func (d *fakeDownloader) Download(_ context.Context, _ string, dest string) error {
	d.calls++
	if d.err != nil {
		_ = os.WriteFile(dest, []byte("partial"), 0o644)
		return d.err
	}
	return os.WriteFile(dest, []byte("archive"), 0o644)
}

type fakeMirror struct {
	objects map[string]bool
	stored  []string
}

func (m *fakeMirror) Fetch(_ context.Context, key string, dest string) (bool, error) {
	if !m.objects[key] {
		return false, nil
	}
	return true, os.WriteFile(dest, []byte("mirrored"), 0o644)
}

func (m *fakeMirror) Store(_ context.Context, key string, _ string) error {
	m.stored = append(m.stored, key)
	return nil
}

// fakeArchive unpacks into {dest}/{Root}/include/{Header}.
type fakeArchive struct {
	Root     string
	Header   string
	extracts map[string]int
}

func newFakeArchive(root string) *fakeArchive {
	return &fakeArchive{Root: root, Header: "r.h", extracts: map[string]int{}}
}

func (a *fakeArchive) RootDir(string) (string, error) {
	return a.Root, nil
}

func (a *fakeArchive) Extract(_ context.Context, _ string, destDir string) error {
	a.extracts[filepath.Base(destDir)]++
	includeDir := filepath.Join(destDir, a.Root, "include")
	if err := os.MkdirAll(includeDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(includeDir, a.Header), []byte("#define R 1\n"), 0o644)
}

type recordingRunner struct {
	mu       sync.Mutex
	commands []types.Command
	err      error
}

func (r *recordingRunner) Run(_ context.Context, cmd types.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return r.err
}

type fakeMerger struct {
	calls [][]types.LibrarySlice
}

func (m *fakeMerger) Merge(_ context.Context, output string, slices []types.LibrarySlice) error {
	m.calls = append(m.calls, slices)
	var archs []string
	for _, slice := range slices {
		archs = append(archs, slice.Arch)
	}
	return os.WriteFile(output, []byte(strings.Join(archs, ",")), 0o644)
}

// libRecipe writes its Library into the build directory of every arch.
type libRecipe struct {
	desc     types.RecipeDescriptor
	builds   map[string]int
	failArch string
	skipLib  string
	installs int
}

func newLibRecipe(desc types.RecipeDescriptor) *libRecipe {
	return &libRecipe{desc: desc, builds: map[string]int{}}
}

func (r *libRecipe) Descriptor() types.RecipeDescriptor { return r.desc }

func (r *libRecipe) PrebuildHooks() ports.HookTable { return nil }

func (r *libRecipe) PostbuildHooks() ports.HookTable { return nil }

func (r *libRecipe) BuildArch(_ context.Context, bc ports.BuildContext) error {
	r.builds[bc.Arch.Name]++
	if bc.Arch.Name == r.failArch {
		return errors.New("compiler crashed")
	}
	if bc.Arch.Name == r.skipLib {
		return nil
	}
	for _, lib := range r.desc.LibraryTemplates() {
		path := filepath.Join(bc.BuildDir, types.ExpandArch(lib, bc.Arch.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(bc.Arch.Name), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (r *libRecipe) Install(context.Context, ports.InstallContext) error {
	r.installs++
	return nil
}

type mapRegistry map[string]ports.Recipe

func (m mapRegistry) Get(name string) (ports.Recipe, bool) {
	recipe, ok := m[name]
	return recipe, ok
}

func (m mapRegistry) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}

func testArchs(names ...string) []types.Architecture {
	var archs []types.Architecture
	for _, arch := range types.DefaultArchitectures() {
		for _, name := range names {
			if arch.Name == name {
				arch.Sysroot = "/sdk/" + arch.SDK
				archs = append(archs, arch)
			}
		}
	}
	return archs
}

func testToolchain(root string, archs ...string) types.Toolchain {
	dist := filepath.Join(root, "dist")
	return types.Toolchain{
		RootDir:    root,
		BuildDir:   filepath.Join(root, "build"),
		CacheDir:   filepath.Join(root, ".cache"),
		DistDir:    dist,
		InstallDir: filepath.Join(dist, "root"),
		IncludeDir: filepath.Join(dist, "include"),
		LibDir:     filepath.Join(dist, "lib"),
		StatePath:  filepath.Join(dist, "state.db"),
		Archs:      testArchs(archs...),
		BaseEnv:    map[string]string{"PATH": "/usr/bin"},
	}
}
