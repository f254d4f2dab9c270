package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/core"
	"ios-toolchain/internal/recipes"
	"ios-toolchain/internal/types"
)

// requiredTools are checked at startup; a missing one only warns since
// most recipes never call it.
var requiredTools = []string{"pkg-config", "autoconf", "automake", "libtool"}

// Layout returns the directory layout under cfg.RootDir. Nothing is
// created and no external tool is queried.
func Layout(cfg Config) (types.Toolchain, error) {
	root := strings.TrimSpace(cfg.RootDir)
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return types.Toolchain{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid root directory %s", root)).
			WithCause(err)
	}
	archs, err := selectArchs(cfg.Archs)
	if err != nil {
		return types.Toolchain{}, err
	}
	dist := filepath.Join(abs, "dist")
	return types.Toolchain{
		RootDir:    abs,
		BuildDir:   filepath.Join(abs, "build"),
		CacheDir:   filepath.Join(abs, ".cache"),
		DistDir:    dist,
		InstallDir: filepath.Join(dist, "root"),
		IncludeDir: filepath.Join(dist, "include"),
		LibDir:     filepath.Join(dist, "lib"),
		StatePath:  filepath.Join(dist, "state.db"),
		HostPython: strings.TrimSpace(cfg.HostPython),
		Archs:      archs,
	}, nil
}

func selectArchs(names []string) ([]types.Architecture, error) {
	all := types.DefaultArchitectures()
	if len(names) == 0 {
		return all, nil
	}
	wanted := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for _, arch := range all {
			if arch.Name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown architecture %s", name))
		}
		wanted[name] = true
	}
	var selected []types.Architecture
	for _, arch := range all {
		if wanted[arch.Name] {
			selected = append(selected, arch)
		}
	}
	if len(selected) == 0 {
		return all, nil
	}
	return selected, nil
}

// prepareToolchain completes the layout with SDK information, host tools
// and the sanitized host environment, then creates the directory tree.
func (s Service) prepareToolchain(ctx context.Context, cfg Config) (types.Toolchain, error) {
	toolchain, err := Layout(cfg)
	if err != nil {
		return types.Toolchain{}, err
	}
	logger := log.Ctx(ctx)
	device, sim, err := s.Locator.SDKVersions(ctx)
	if err != nil {
		return types.Toolchain{}, err
	}
	toolchain.SDKVersion = device
	toolchain.SimVersion = sim
	logger.Info().Str("device", device).Str("simulator", sim).Msg("Using iOS SDKs")

	for i, arch := range toolchain.Archs {
		sysroot, err := s.Locator.SDKPath(ctx, arch.SDK)
		if err != nil {
			return types.Toolchain{}, err
		}
		toolchain.Archs[i].Sysroot = sysroot
	}
	if ccache, ok := s.Locator.LookPath("ccache"); ok {
		toolchain.CCache = ccache
	} else {
		logger.Debug().Msg("ccache is missing, builds will not be cached")
	}
	if toolchain.HostPython == "" {
		if python, ok := s.Locator.LookPath("python3"); ok {
			toolchain.HostPython = python
		}
	}
	for _, tool := range requiredTools {
		if _, ok := s.Locator.LookPath(tool); !ok {
			logger.Warn().Str("tool", tool).Msgf("Missing requirement: %s is not installed", tool)
		}
	}
	toolchain.BaseEnv = core.SanitizeHostEnv(s.Environ())

	for _, dir := range []string{
		toolchain.BuildDir,
		toolchain.CacheDir,
		toolchain.DistDir,
		toolchain.InstallDir,
		toolchain.IncludeDir,
		filepath.Join(toolchain.IncludeDir, "common"),
		toolchain.LibDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.Toolchain{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to create %s", dir)).
				WithCause(err)
		}
	}
	return toolchain, nil
}

// loadRegistry returns the built-in recipes plus every recipe file found in
// the configured directories.
func (s Service) loadRegistry(ctx context.Context, cfg Config) (*recipes.Registry, error) {
	registry := recipes.Builtin()
	for _, dir := range cfg.RecipeDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		loaded, err := s.RecipeSource.LoadRecipes(dir)
		if err != nil {
			return nil, err
		}
		for _, recipe := range loaded {
			if err := registry.Register(recipe); err != nil {
				return nil, err
			}
		}
		log.Ctx(ctx).Debug().Str("dir", dir).Int("count", len(loaded)).Msg("loaded recipe files")
	}
	return registry, nil
}
