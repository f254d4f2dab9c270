package ports

import (
	"context"

	"ios-toolchain/internal/types"
)

// BuildContext is handed to per-arch hooks. Env is the assembled build
// environment for Arch and is owned by the hook call.
type BuildContext struct {
	Toolchain  types.Toolchain
	Descriptor types.RecipeDescriptor
	Arch       types.Architecture
	BuildDir   string
	Env        map[string]string
	Runner     CommandRunnerPort
}

// InstallContext is handed to a recipe's Install step.
type InstallContext struct {
	Toolchain  types.Toolchain
	Descriptor types.RecipeDescriptor
	Archs      []types.Architecture
	BuildDirs  map[string]string
	Env        map[string]string
	Runner     CommandRunnerPort
}

// HookFunc is one per-arch lifecycle hook.
type HookFunc func(ctx context.Context, b BuildContext) error

// HookTable maps an architecture name to its hook. The "*" entry applies to
// architectures without their own entry. Missing entries are no-ops.
type HookTable map[string]HookFunc

const AnyArch = "*"

func (t HookTable) Run(ctx context.Context, b BuildContext) error {
	hook, ok := t[b.Arch.Name]
	if !ok {
		hook = t[AnyArch]
	}
	if hook == nil {
		return nil
	}
	return hook(ctx, b)
}

// Recipe is the contract every buildable component implements.
type Recipe interface {
	Descriptor() types.RecipeDescriptor
	PrebuildHooks() HookTable
	BuildArch(ctx context.Context, b BuildContext) error
	PostbuildHooks() HookTable
	Install(ctx context.Context, i InstallContext) error
}

// RecipeSourcePort loads externally defined recipes from a directory.
type RecipeSourcePort interface {
	LoadRecipes(dir string) ([]Recipe, error)
}

// RecipeRegistryPort resolves recipe names.
type RecipeRegistryPort interface {
	Get(name string) (Recipe, bool)
	Names() []string
}
