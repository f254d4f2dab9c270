package recipes

import (
	"context"
	"path/filepath"
	"strings"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

// CommandStep is one external command of a declarative recipe. Run is the
// argv; Dir is relative to the arch build directory.
type CommandStep struct {
	Run []string          `yaml:"run"`
	Dir string            `yaml:"dir,omitempty"`
	Env map[string]string `yaml:"env,omitempty"`
}

// CommandSpec is a recipe defined entirely by data: a descriptor plus
// command lists keyed by architecture name ("*" for any).
type CommandSpec struct {
	types.RecipeDescriptor `yaml:",inline"`

	Prebuild  map[string][]CommandStep `yaml:"prebuild,omitempty"`
	Build     map[string][]CommandStep `yaml:"build,omitempty"`
	Postbuild map[string][]CommandStep `yaml:"postbuild,omitempty"`
	Install   []CommandStep            `yaml:"install,omitempty"`
}

// NewCommandRecipe turns a declarative spec into a recipe.
func NewCommandRecipe(spec CommandSpec) Base {
	base := Base{
		Desc:      spec.RecipeDescriptor,
		Prebuild:  commandHooks(spec.Prebuild),
		Build:     commandHooks(spec.Build),
		Postbuild: commandHooks(spec.Postbuild),
	}
	if len(spec.Install) > 0 {
		steps := spec.Install
		base.InstallFn = func(ctx context.Context, i ports.InstallContext) error {
			arch := i.Archs[0]
			bc := ports.BuildContext{
				Toolchain:  i.Toolchain,
				Descriptor: i.Descriptor,
				Arch:       arch,
				BuildDir:   i.BuildDirs[arch.Name],
				Env:        i.Env,
				Runner:     i.Runner,
			}
			return runSteps(ctx, bc, steps)
		}
	}
	return base
}

func commandHooks(steps map[string][]CommandStep) ports.HookTable {
	if len(steps) == 0 {
		return nil
	}
	table := ports.HookTable{}
	for arch, list := range steps {
		list := list
		table[arch] = func(ctx context.Context, bc ports.BuildContext) error {
			return runSteps(ctx, bc, list)
		}
	}
	return table
}

func runSteps(ctx context.Context, bc ports.BuildContext, steps []CommandStep) error {
	replacer := placeholders(bc)
	for _, step := range steps {
		if len(step.Run) == 0 {
			continue
		}
		args := make([]string, 0, len(step.Run)-1)
		for _, arg := range step.Run[1:] {
			args = append(args, replacer.Replace(arg))
		}
		env := bc.Env
		if len(step.Env) > 0 {
			extra := make(map[string]string, len(step.Env))
			for key, value := range step.Env {
				extra[key] = replacer.Replace(value)
			}
			env = WithEnv(bc.Env, extra)
		}
		if err := bc.Runner.Run(ctx, types.Command{
			Name: replacer.Replace(step.Run[0]),
			Args: args,
			Dir:  filepath.Join(bc.BuildDir, replacer.Replace(step.Dir)),
			Env:  env,
		}); err != nil {
			return err
		}
	}
	return nil
}

func placeholders(bc ports.BuildContext) *strings.Replacer {
	tc := bc.Toolchain
	return strings.NewReplacer(
		"{arch}", bc.Arch.Name,
		"{sdk}", bc.Arch.SDK,
		"{triple}", bc.Arch.Triple,
		"{sysroot}", bc.Arch.Sysroot,
		"{version_min}", bc.Arch.VersionMin,
		"{version}", bc.Descriptor.Version,
		"{name}", bc.Descriptor.Name,
		"{build_dir}", bc.BuildDir,
		"{root}", tc.RootDir,
		"{dist}", tc.DistDir,
		"{include}", tc.IncludeDir,
		"{lib}", tc.LibDir,
		"{install}", tc.InstallDir,
		"{hostpython}", tc.HostPython,
		"{python_prefix}", PythonPrefix(tc),
	)
}
