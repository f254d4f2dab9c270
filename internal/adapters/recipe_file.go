package adapters

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/recipes"
	"ios-toolchain/internal/types"
)

// RecipeFileAdapter loads declarative recipes from YAML and HCL files. A
// YAML file holds one recipe; without a name it takes its directory's name.
// An HCL file may hold several labelled recipe blocks.
type RecipeFileAdapter struct{}

func NewRecipeFileAdapter() RecipeFileAdapter {
	return RecipeFileAdapter{}
}

func (a RecipeFileAdapter) LoadRecipes(dir string) ([]ports.Recipe, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe directory is empty")
	}
	paths, err := findRecipeFiles(dir)
	if err != nil {
		return nil, err
	}
	parser := hclparse.NewParser()
	var loaded []ports.Recipe
	for _, path := range paths {
		var specs []recipes.CommandSpec
		switch filepath.Ext(path) {
		case ".hcl":
			specs, err = loadHCLRecipes(parser, path)
		default:
			var spec recipes.CommandSpec
			spec, err = loadYAMLRecipe(path)
			specs = []recipes.CommandSpec{spec}
		}
		if err != nil {
			return nil, err
		}
		for _, spec := range specs {
			spec.RecipeDir = filepath.Dir(path)
			loaded = append(loaded, recipes.NewCommandRecipe(spec))
		}
	}
	return loaded, nil
}

func findRecipeFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml", ".hcl":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("failed to scan recipe directory %s", root)).
			WithCause(err)
	}
	sort.Strings(paths)
	return paths, nil
}

func loadYAMLRecipe(path string) (recipes.CommandSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return recipes.CommandSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("recipe file not found").
			WithCause(err)
	}
	var spec recipes.CommandSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return recipes.CommandSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse recipe yaml %s", path)).
			WithCause(err)
	}
	if strings.TrimSpace(spec.Name) == "" {
		spec.Name = filepath.Base(filepath.Dir(path))
	}
	return spec, nil
}

type hclRecipeFile struct {
	Recipes []hclRecipe `hcl:"recipe,block"`
}

type hclRecipe struct {
	Name            string             `hcl:"name,label"`
	Version         string             `hcl:"version"`
	URL             string             `hcl:"url"`
	Depends         []string           `hcl:"depends,optional"`
	OptionalDepends []string           `hcl:"optional_depends,optional"`
	Archs           []string           `hcl:"archs,optional"`
	Library         string             `hcl:"library,optional"`
	Libraries       []string           `hcl:"libraries,optional"`
	IncludePerArch  bool               `hcl:"include_per_arch,optional"`
	Patches         []string           `hcl:"patches,optional"`
	IncludeDirs     []types.IncludeDir `hcl:"include_dir,block"`
	Prebuild        []hclStep          `hcl:"prebuild,block"`
	Build           []hclStep          `hcl:"build,block"`
	Postbuild       []hclStep          `hcl:"postbuild,block"`
	Install         []hclInstallStep   `hcl:"install,block"`
}

type hclStep struct {
	Arch string            `hcl:"arch,label"`
	Run  []string          `hcl:"run"`
	Dir  string            `hcl:"dir,optional"`
	Env  map[string]string `hcl:"env,optional"`
}

type hclInstallStep struct {
	Run []string          `hcl:"run"`
	Dir string            `hcl:"dir,optional"`
	Env map[string]string `hcl:"env,optional"`
}

func loadHCLRecipes(parser *hclparse.Parser, path string) ([]recipes.CommandSpec, error) {
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse recipe hcl %s", path)).
			WithCause(diags)
	}
	var parsed hclRecipeFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to decode recipe hcl %s", path)).
			WithCause(diags)
	}
	specs := make([]recipes.CommandSpec, 0, len(parsed.Recipes))
	for _, r := range parsed.Recipes {
		spec := recipes.CommandSpec{
			RecipeDescriptor: types.RecipeDescriptor{
				Name:            r.Name,
				Version:         r.Version,
				URL:             r.URL,
				Depends:         r.Depends,
				OptionalDepends: r.OptionalDepends,
				Archs:           r.Archs,
				Library:         r.Library,
				Libraries:       r.Libraries,
				IncludeDirs:     r.IncludeDirs,
				IncludePerArch:  r.IncludePerArch,
				Patches:         r.Patches,
			},
			Prebuild:  groupSteps(r.Prebuild),
			Build:     groupSteps(r.Build),
			Postbuild: groupSteps(r.Postbuild),
		}
		for _, step := range r.Install {
			spec.Install = append(spec.Install, recipes.CommandStep{Run: step.Run, Dir: step.Dir, Env: step.Env})
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// groupSteps keeps declaration order within each arch label.
func groupSteps(steps []hclStep) map[string][]recipes.CommandStep {
	if len(steps) == 0 {
		return nil
	}
	grouped := map[string][]recipes.CommandStep{}
	for _, step := range steps {
		grouped[step.Arch] = append(grouped[step.Arch], recipes.CommandStep{Run: step.Run, Dir: step.Dir, Env: step.Env})
	}
	return grouped
}

var _ ports.RecipeSourcePort = RecipeFileAdapter{}
