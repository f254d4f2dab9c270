package recipes

import (
	"context"
	"path/filepath"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

// Base implements ports.Recipe from a descriptor and explicit per-arch hook
// tables. Concrete recipes embed it and override what they need.
type Base struct {
	Desc      types.RecipeDescriptor
	Prebuild  ports.HookTable
	Build     ports.HookTable
	Postbuild ports.HookTable
	InstallFn func(ctx context.Context, i ports.InstallContext) error
}

func (b Base) Descriptor() types.RecipeDescriptor {
	return b.Desc
}

func (b Base) PrebuildHooks() ports.HookTable {
	return b.Prebuild
}

func (b Base) BuildArch(ctx context.Context, bc ports.BuildContext) error {
	return b.Build.Run(ctx, bc)
}

func (b Base) PostbuildHooks() ports.HookTable {
	return b.Postbuild
}

// Install is a no-op unless InstallFn is set.
func (b Base) Install(ctx context.Context, i ports.InstallContext) error {
	if b.InstallFn == nil {
		return nil
	}
	return b.InstallFn(ctx, i)
}

// Run executes name in the build directory with the arch environment.
func Run(ctx context.Context, bc ports.BuildContext, dir string, name string, args ...string) error {
	return bc.Runner.Run(ctx, types.Command{
		Name: name,
		Args: args,
		Dir:  filepath.Join(bc.BuildDir, dir),
		Env:  bc.Env,
	})
}

// WithEnv returns a copy of env with extra entries appended to existing
// values (space separated) or set when absent.
func WithEnv(env map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(env)+len(extra))
	for key, value := range env {
		out[key] = value
	}
	for key, value := range extra {
		if existing, ok := out[key]; ok && existing != "" {
			out[key] = existing + " " + value
			continue
		}
		out[key] = value
	}
	return out
}

var _ ports.Recipe = Base{}
