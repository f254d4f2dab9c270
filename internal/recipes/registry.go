// Package recipes holds the explicit recipe registry, the base recipe
// implementation and the recipes built into the toolchain.
package recipes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"ios-toolchain/internal/ports"
)

// Registry is the explicit name → recipe table. Recipes are registered
// up front; nothing is discovered by name at build time.
type Registry struct {
	recipes map[string]ports.Recipe
}

func NewRegistry() *Registry {
	return &Registry{recipes: map[string]ports.Recipe{}}
}

// Register adds recipe. Names are global: a second recipe with the same name
// is rejected rather than silently replacing the first.
func (r *Registry) Register(recipe ports.Recipe) error {
	name := strings.TrimSpace(recipe.Descriptor().Name)
	if name == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe name is empty")
	}
	if _, exists := r.recipes[name]; exists {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("recipe %s is already registered", name))
	}
	r.recipes[name] = recipe
	return nil
}

func (r *Registry) Get(name string) (ports.Recipe, bool) {
	recipe, ok := r.recipes[name]
	return recipe, ok
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.recipes))
	for name := range r.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a registry holding the recipes shipped with the toolchain.
func Builtin() *Registry {
	registry := NewRegistry()
	for _, recipe := range []ports.Recipe{NewOpenMP(), NewFaiss()} {
		if err := registry.Register(recipe); err != nil {
			panic(err)
		}
	}
	return registry
}

var _ ports.RecipeRegistryPort = (*Registry)(nil)
