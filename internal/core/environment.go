package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

// strippedHostVars are removed from the inherited environment because they
// break cross compilation.
var strippedHostVars = []string{
	"MACOSX_DEPLOYMENT_TARGET",
	"PYTHONDONTWRITEBYTECODE",
	"ARCHFLAGS",
	"CFLAGS",
	"LDFLAGS",
}

// SanitizeHostEnv copies the host environment without the variables that
// would leak host flags into target builds.
func SanitizeHostEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	for _, key := range strippedHostVars {
		delete(env, key)
	}
	return env
}

// EnvironmentBuilder derives per-arch build environments. It only assembles
// flags; values are never interpreted.
type EnvironmentBuilder struct {
	Toolchain types.Toolchain
	Locator   ports.ToolchainLocatorPort

	includeDirs []string
}

func NewEnvironmentBuilder(toolchain types.Toolchain, locator ports.ToolchainLocatorPort) *EnvironmentBuilder {
	return &EnvironmentBuilder{Toolchain: toolchain, Locator: locator}
}

// RegisterIncludeDir records an include subtree (relative to the include
// root, may contain {arch}) visible to every later build.
func (b *EnvironmentBuilder) RegisterIncludeDir(dir string) {
	for _, existing := range b.includeDirs {
		if existing == dir {
			return
		}
	}
	b.includeDirs = append(b.includeDirs, dir)
}

// IncludeDirs returns the absolute include directories for arch.
func (b *EnvironmentBuilder) IncludeDirs(arch types.Architecture) []string {
	dirs := make([]string, 0, len(b.includeDirs))
	for _, dir := range b.includeDirs {
		dirs = append(dirs, filepath.Join(b.Toolchain.IncludeDir, types.ExpandArch(dir, arch.Name)))
	}
	return dirs
}

// Environment returns a fresh environment map for arch.
func (b *EnvironmentBuilder) Environment(ctx context.Context, arch types.Architecture) (map[string]string, error) {
	env := make(map[string]string, len(b.Toolchain.BaseEnv)+12)
	for key, value := range b.Toolchain.BaseEnv {
		env[key] = value
	}

	tools := map[string]string{"CC": "clang", "CXX": "clang++", "AR": "ar", "LD": "ld"}
	for _, key := range []string{"CC", "CXX", "AR", "LD"} {
		path, err := b.Locator.FindTool(ctx, arch.SDK, tools[key])
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("failed to locate %s for sdk %s", tools[key], arch.SDK)).
				WithCause(err)
		}
		env[key] = path
	}
	if b.Toolchain.CCache != "" {
		env["CC"] = b.Toolchain.CCache + " " + env["CC"]
		env["CXX"] = b.Toolchain.CCache + " " + env["CXX"]
	}

	var includeFlags []string
	for _, dir := range b.IncludeDirs(arch) {
		includeFlags = append(includeFlags, "-I"+dir)
	}
	libFlag := "-L" + b.Toolchain.LibDir

	env["OTHER_CFLAGS"] = strings.Join(includeFlags, " ")
	env["OTHER_LDFLAGS"] = libFlag

	cflags := []string{
		"-arch", arch.Name,
		"-pipe", "-no-cpp-precomp",
		"--sysroot", arch.Sysroot,
		"-O3",
		arch.VersionMin,
	}
	cflags = append(cflags, includeFlags...)
	env["CFLAGS"] = strings.Join(cflags, " ")
	env["CXXFLAGS"] = env["CFLAGS"]
	env["LDFLAGS"] = strings.Join([]string{
		"-arch", arch.Name,
		"--sysroot", arch.Sysroot,
		libFlag,
		"-lsqlite3",
		"-undefined", "dynamic_lookup",
		arch.VersionMin,
	}, " ")
	return env, nil
}
