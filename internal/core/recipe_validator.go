package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"ios-toolchain/internal/types"
)

var recipeNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

var placeholderPattern = regexp.MustCompile(`\{[^{}]*\}`)

// RecipeValidator checks the internal consistency of one descriptor. It does
// not reconcile conflicting definitions of the same component.
type RecipeValidator struct {
	Archs []types.Architecture
}

func NewRecipeValidator(archs []types.Architecture) RecipeValidator {
	return RecipeValidator{Archs: archs}
}

func (v RecipeValidator) Validate(_ context.Context, desc types.RecipeDescriptor) error {
	if !recipeNamePattern.MatchString(desc.Name) {
		return invalidRecipe(desc.Name, "name must match [a-z0-9][a-z0-9_.-]*")
	}
	if strings.TrimSpace(desc.Version) == "" {
		return invalidRecipe(desc.Name, "version must be set")
	}
	if strings.TrimSpace(desc.URL) == "" {
		return invalidRecipe(desc.Name, "url must be set")
	}
	if err := onlyPlaceholders(desc.URL, "{version}"); err != nil {
		return invalidRecipe(desc.Name, "url "+err.Error())
	}

	seen := map[string]struct{}{}
	for _, dep := range append(append([]string(nil), desc.Depends...), desc.OptionalDepends...) {
		if dep == desc.Name {
			return invalidRecipe(desc.Name, "recipe depends on itself")
		}
		if _, dup := seen[dep]; dup {
			return invalidRecipe(desc.Name, fmt.Sprintf("dependency %s listed twice", dep))
		}
		seen[dep] = struct{}{}
	}

	known := map[string]struct{}{}
	for _, arch := range v.Archs {
		known[arch.Name] = struct{}{}
	}
	for _, arch := range desc.Archs {
		if _, ok := known[arch]; !ok {
			return invalidRecipe(desc.Name, fmt.Sprintf("unknown architecture %s", arch))
		}
	}

	merged := map[string]string{}
	for _, lib := range desc.LibraryTemplates() {
		if err := onlyPlaceholders(lib, "{arch}"); err != nil {
			return invalidRecipe(desc.Name, "library "+err.Error())
		}
		if strings.HasPrefix(lib, "/") {
			return invalidRecipe(desc.Name, fmt.Sprintf("library %s must be relative to the build directory", lib))
		}
		base := types.ExpandArch(lib, "")
		name := base[strings.LastIndex(base, "/")+1:]
		if lib == desc.Library {
			name = desc.StaticLibraryName()
		}
		if other, dup := merged[name]; dup {
			return invalidRecipe(desc.Name, fmt.Sprintf("libraries %s and %s merge into the same %s", other, lib, name))
		}
		merged[name] = lib
	}
	for _, include := range desc.IncludeDirs {
		if strings.TrimSpace(include.Source) == "" {
			return invalidRecipe(desc.Name, "include dir source must be set")
		}
		if err := onlyPlaceholders(include.Source, "{arch}"); err != nil {
			return invalidRecipe(desc.Name, "include dir "+err.Error())
		}
	}
	return nil
}

func onlyPlaceholders(template string, allowed ...string) error {
	for _, found := range placeholderPattern.FindAllString(template, -1) {
		ok := false
		for _, candidate := range allowed {
			if found == candidate {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%q uses unsupported placeholder %s", template, found)
		}
	}
	return nil
}

func invalidRecipe(name string, msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid recipe %s: %s", name, msg))
}
