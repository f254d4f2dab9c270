package core

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/shared"
	"ios-toolchain/internal/types"
)

// Executor drives one recipe through download, extract, per-arch build,
// merge, header install and install. Each step is memoized in the state
// record; per-arch builds are guarded by marker files instead.
type Executor struct {
	Toolchain  types.Toolchain
	State      ports.StatePort
	Memo       StepMemo
	Downloader ports.DownloaderPort
	Mirror     ports.MirrorPort
	Archive    ports.ArchivePort
	Runner     ports.CommandRunnerPort
	Merger     ports.LibraryMergerPort
	Env        *EnvironmentBuilder
}

// Execute runs the whole lifecycle of recipe.
func (e *Executor) Execute(ctx context.Context, recipe ports.Recipe) error {
	desc := recipe.Descriptor()
	ctx = log.Ctx(ctx).With().Str("recipe", desc.Name).Logger().WithContext(ctx)

	archs, err := FilterArchs(e.Toolchain, desc)
	if err != nil {
		return err
	}
	if _, err := e.Memo.Run(ctx, desc.Name, types.StepDownload, func(ctx context.Context) error {
		return e.download(ctx, desc)
	}); err != nil {
		return err
	}
	if _, err := e.Memo.Run(ctx, desc.Name, types.StepExtract, func(ctx context.Context) error {
		for _, arch := range archs {
			log.Ctx(ctx).Info().Str("arch", arch.Name).Msgf("Extract %s for %s", desc.Name, arch.Name)
			if err := e.extractArch(ctx, desc, arch); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, err = e.Memo.Run(ctx, desc.Name, types.StepBuildAll, func(ctx context.Context) error {
		return e.buildAll(ctx, recipe, archs)
	})
	return err
}

func (e *Executor) buildAll(ctx context.Context, recipe ports.Recipe, archs []types.Architecture) error {
	desc := recipe.Descriptor()
	for _, arch := range archs {
		if err := e.BuildArch(ctx, recipe, arch); err != nil {
			return err
		}
	}
	if _, err := e.Memo.Run(ctx, desc.Name, types.StepMerge, func(ctx context.Context) error {
		return e.merge(ctx, desc, archs)
	}); err != nil {
		return err
	}
	if _, err := e.Memo.Run(ctx, desc.Name, types.StepInstallHeaders, func(ctx context.Context) error {
		return e.installHeaders(ctx, desc, archs)
	}); err != nil {
		return err
	}
	if _, err := e.Memo.Run(ctx, desc.Name, types.StepInstall, func(ctx context.Context) error {
		return e.install(ctx, recipe, archs)
	}); err != nil {
		return err
	}
	if err := e.State.Set(VersionKey(desc.Name), desc.Version); err != nil {
		return stateWriteError(VersionKey(desc.Name), err)
	}
	return nil
}

// BuildArch runs prebuild, build and postbuild for one architecture. A
// leftover "building" marker means a previous run died mid-build: the arch
// tree is destroyed and re-extracted before building again. A missing tree
// is re-extracted too.
func (e *Executor) BuildArch(ctx context.Context, recipe ports.Recipe, arch types.Architecture) error {
	desc := recipe.Descriptor()
	logger := log.Ctx(ctx).With().Str("arch", arch.Name).Logger()
	ctx = logger.WithContext(ctx)

	buildDir, err := e.BuildDir(desc, arch)
	if err != nil {
		return err
	}
	if !shared.IsDir(buildDir) {
		// The tree was cleaned after the extract step was recorded.
		if err := e.extractArch(ctx, desc, arch); err != nil {
			return err
		}
	}
	if HasMarker(buildDir, types.MarkerBuilding) {
		logger.Warn().Msgf("%s build for %s has been incomplete, deleting the build and restarting", desc.Name, arch.Name)
		if err := os.RemoveAll(buildDir); err != nil {
			return fsError("failed to remove incomplete build directory", err)
		}
		if err := e.extractArch(ctx, desc, arch); err != nil {
			return err
		}
	}
	if HasMarker(buildDir, types.MarkerBuildDone) {
		logger.Info().Bool("skipped", true).Msgf("Build %s for %s already done", desc.Name, arch.Name)
		return nil
	}
	if err := SetMarker(buildDir, types.MarkerBuilding); err != nil {
		return err
	}

	env, err := e.Env.Environment(ctx, arch)
	if err != nil {
		return err
	}
	bctx := ports.BuildContext{
		Toolchain:  e.Toolchain,
		Descriptor: desc,
		Arch:       arch,
		BuildDir:   buildDir,
		Env:        env,
		Runner:     e.Runner,
	}
	phases := []struct {
		phase types.HookPhase
		title string
		run   func(context.Context, ports.BuildContext) error
	}{
		{types.PhasePrebuild, "Prebuild", recipe.PrebuildHooks().Run},
		{types.PhaseBuild, "Build", recipe.BuildArch},
		{types.PhasePostbuild, "Postbuild", recipe.PostbuildHooks().Run},
	}
	for _, p := range phases {
		logger.Info().Str("phase", string(p.phase)).Msgf("%s %s for %s", p.title, desc.Name, arch.Name)
		if err := p.run(ctx, bctx); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("%s of %s for %s failed", p.phase, desc.Name, arch.Name)).
				WithCause(err)
		}
	}

	if err := DeleteMarker(buildDir, types.MarkerBuilding); err != nil {
		return err
	}
	return SetMarker(buildDir, types.MarkerBuildDone)
}

// ArchivePath is the cache location of the recipe source archive.
func (e *Executor) ArchivePath(desc types.RecipeDescriptor) string {
	return filepath.Join(e.Toolchain.CacheDir, fmt.Sprintf("%s-%s", desc.Name, urlBase(desc.SourceURL())))
}

// ArchDir is the directory an arch's copy of the archive is unpacked into.
func (e *Executor) ArchDir(desc types.RecipeDescriptor, arch types.Architecture) string {
	return filepath.Join(e.Toolchain.BuildDir, desc.Name, arch.Name)
}

// BuildDir is the unpacked archive root for arch.
func (e *Executor) BuildDir(desc types.RecipeDescriptor, arch types.Architecture) (string, error) {
	root, err := e.archiveRoot(desc)
	if err != nil {
		return "", err
	}
	return filepath.Join(e.ArchDir(desc, arch), root), nil
}

func (e *Executor) download(ctx context.Context, desc types.RecipeDescriptor) error {
	archivePath := e.ArchivePath(desc)
	if !shared.PathExists(archivePath) {
		if err := e.fetch(ctx, desc, archivePath); err != nil {
			return err
		}
	}
	root, err := e.Archive.RootDir(archivePath)
	if err != nil {
		return err
	}
	if err := e.State.Set(ArchiveRootKey(desc.Name), root); err != nil {
		return stateWriteError(ArchiveRootKey(desc.Name), err)
	}
	return nil
}

func (e *Executor) fetch(ctx context.Context, desc types.RecipeDescriptor, archivePath string) error {
	logger := log.Ctx(ctx)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return fsError("failed to create cache directory", err)
	}
	partial := archivePath + ".part"
	mirrorKey := filepath.Base(archivePath)
	fromMirror := false
	if e.Mirror != nil {
		found, err := e.Mirror.Fetch(ctx, mirrorKey, partial)
		if err != nil {
			logger.Warn().Err(err).Str("key", mirrorKey).Msg("mirror fetch failed, falling back to source url")
		}
		fromMirror = err == nil && found
	}
	if !fromMirror {
		sourceURL := desc.SourceURL()
		logger.Info().Str("url", sourceURL).Msgf("Downloading %s", sourceURL)
		if err := e.Downloader.Download(ctx, sourceURL, partial); err != nil {
			_ = os.Remove(partial)
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("download of %s failed", desc.Name)).
				WithCause(err)
		}
	}
	if err := os.Rename(partial, archivePath); err != nil {
		return fsError("failed to move downloaded archive into cache", err)
	}
	if e.Mirror != nil && !fromMirror {
		if err := e.Mirror.Store(ctx, mirrorKey, archivePath); err != nil {
			logger.Warn().Err(err).Str("key", mirrorKey).Msg("failed to store archive in mirror")
		}
	}
	return nil
}

// archiveRoot returns the cached archive root, inspecting the archive only
// when the state record lost it.
func (e *Executor) archiveRoot(desc types.RecipeDescriptor) (string, error) {
	key := ArchiveRootKey(desc.Name)
	if root, ok := e.State.GetString(key); ok && root != "" {
		return root, nil
	}
	root, err := e.Archive.RootDir(e.ArchivePath(desc))
	if err != nil {
		return "", err
	}
	if err := e.State.Set(key, root); err != nil {
		return "", stateWriteError(key, err)
	}
	return root, nil
}

func (e *Executor) extractArch(ctx context.Context, desc types.RecipeDescriptor, arch types.Architecture) error {
	archDir := e.ArchDir(desc, arch)
	buildDir, err := e.BuildDir(desc, arch)
	if err != nil {
		return err
	}
	if shared.PathExists(buildDir) {
		return nil
	}
	if err := os.MkdirAll(archDir, 0o755); err != nil {
		return fsError("failed to create arch build directory", err)
	}
	archivePath := e.ArchivePath(desc)
	log.Ctx(ctx).Debug().Str("archive", archivePath).Str("dest", archDir).Msg("extracting archive")
	if err := e.Archive.Extract(ctx, archivePath, archDir); err != nil {
		return err
	}
	if !shared.IsDir(buildDir) {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("archive %s did not produce %s", filepath.Base(archivePath), filepath.Base(buildDir)))
	}
	for _, patch := range desc.Patches {
		patchPath := filepath.Join(desc.RecipeDir, patch)
		log.Ctx(ctx).Info().Str("arch", arch.Name).Msgf("Apply patch %s", patch)
		if err := e.Runner.Run(ctx, types.Command{
			Name: "patch",
			Args: []string{"-t", "-d", buildDir, "-p1", "-i", patchPath},
		}); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("patch %s of %s for %s failed", patch, desc.Name, arch.Name)).
				WithCause(err)
		}
	}
	return nil
}

// MergedLibraryPath is where a library template ends up after merging. A
// single Library becomes lib{recipe}.a; entries of Libraries keep their own
// file names.
func (e *Executor) MergedLibraryPath(desc types.RecipeDescriptor, template string) string {
	if template == desc.Library {
		return filepath.Join(e.Toolchain.LibDir, desc.StaticLibraryName())
	}
	return filepath.Join(e.Toolchain.LibDir, filepath.Base(types.ExpandArch(template, "")))
}

func (e *Executor) merge(ctx context.Context, desc types.RecipeDescriptor, archs []types.Architecture) error {
	templates := desc.LibraryTemplates()
	if len(templates) == 0 {
		log.Ctx(ctx).Info().Msgf("%s declares no library, nothing to merge", desc.Name)
		return nil
	}
	buildDirs := map[string]string{}
	for _, arch := range archs {
		buildDir, err := e.BuildDir(desc, arch)
		if err != nil {
			return err
		}
		if !HasMarker(buildDir, types.MarkerBuildDone) {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("cannot merge %s: %s is not built", desc.Name, arch.Name))
		}
		buildDirs[arch.Name] = buildDir
	}
	if err := os.MkdirAll(e.Toolchain.LibDir, 0o755); err != nil {
		return fsError("failed to create library directory", err)
	}
	for _, template := range templates {
		var slices []types.LibrarySlice
		for _, arch := range archs {
			slice := filepath.Join(buildDirs[arch.Name], types.ExpandArch(template, arch.Name))
			if !shared.PathExists(slice) {
				return errbuilder.New().
					WithCode(errbuilder.CodeNotFound).
					WithMsg(fmt.Sprintf("library %s of %s for %s not found", slice, desc.Name, arch.Name))
			}
			slices = append(slices, types.LibrarySlice{Arch: arch.Name, Path: slice})
		}
		output := e.MergedLibraryPath(desc, template)
		log.Ctx(ctx).Info().Str("output", output).Msgf("Lipo %s to %s", desc.Name, output)
		if err := e.Merger.Merge(ctx, output, slices); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("merge of %s into %s failed", desc.Name, filepath.Base(output))).
				WithCause(err)
		}
	}
	return nil
}

// IncludeSubdir is the include tree entry of a recipe, relative to the
// include root. It may contain {arch}.
func IncludeSubdir(desc types.RecipeDescriptor) string {
	if desc.IncludePerArch {
		return filepath.Join("{arch}", desc.Name)
	}
	return filepath.Join("common", desc.Name)
}

func (e *Executor) installHeaders(ctx context.Context, desc types.RecipeDescriptor, archs []types.Architecture) error {
	if len(desc.IncludeDirs) == 0 {
		log.Ctx(ctx).Info().Msgf("%s declares no include directory", desc.Name)
		return nil
	}
	targets := archs
	if !desc.IncludePerArch {
		targets = archs[:1]
	}
	for _, arch := range targets {
		destDir := filepath.Join(e.Toolchain.IncludeDir, types.ExpandArch(IncludeSubdir(desc), arch.Name))
		if err := os.RemoveAll(destDir); err != nil {
			return fsError("failed to remove stale include directory", err)
		}
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return fsError("failed to create include directory", err)
		}
		buildDir, err := e.BuildDir(desc, arch)
		if err != nil {
			return err
		}
		for _, include := range desc.IncludeDirs {
			src := filepath.Join(buildDir, types.ExpandArch(include.Source, arch.Name))
			if shared.IsDir(src) {
				if err := shared.CopyTree(src, destDir); err != nil {
					return fsError(fmt.Sprintf("failed to copy headers from %s", include.Source), err)
				}
				continue
			}
			destName := include.Dest
			if destName == "" {
				destName = filepath.Base(src)
			}
			dest := filepath.Join(destDir, destName)
			log.Ctx(ctx).Debug().Str("arch", arch.Name).Msgf("Copy %s to %s", src, dest)
			if err := shared.CopyFile(src, dest); err != nil {
				return fsError(fmt.Sprintf("failed to copy header %s", include.Source), err)
			}
		}
	}
	return nil
}

func (e *Executor) install(ctx context.Context, recipe ports.Recipe, archs []types.Architecture) error {
	desc := recipe.Descriptor()
	buildDirs := make(map[string]string, len(archs))
	for _, arch := range archs {
		buildDir, err := e.BuildDir(desc, arch)
		if err != nil {
			return err
		}
		buildDirs[arch.Name] = buildDir
	}
	env, err := e.Env.Environment(ctx, archs[0])
	if err != nil {
		return err
	}
	if err := recipe.Install(ctx, ports.InstallContext{
		Toolchain:  e.Toolchain,
		Descriptor: desc,
		Archs:      archs,
		BuildDirs:  buildDirs,
		Env:        env,
		Runner:     e.Runner,
	}); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("install of %s failed", desc.Name)).
			WithCause(err)
	}
	return nil
}

// FilterArchs returns the toolchain architectures the recipe builds for, in
// toolchain order.
func FilterArchs(toolchain types.Toolchain, desc types.RecipeDescriptor) ([]types.Architecture, error) {
	if len(desc.Archs) == 0 {
		if len(toolchain.Archs) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("no target architectures configured")
		}
		return toolchain.Archs, nil
	}
	wanted := map[string]struct{}{}
	for _, name := range desc.Archs {
		wanted[name] = struct{}{}
	}
	var archs []types.Architecture
	for _, arch := range toolchain.Archs {
		if _, ok := wanted[arch.Name]; ok {
			archs = append(archs, arch)
		}
	}
	if len(archs) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("recipe %s targets no configured architecture", desc.Name))
	}
	return archs, nil
}

func urlBase(raw string) string {
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		return path.Base(parsed.Path)
	}
	return path.Base(raw)
}

func fsError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}
