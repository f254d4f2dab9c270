package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"ios-toolchain/internal/core"
)

// Validate checks recipe descriptors, their mandatory dependencies and the
// dependency graph without touching the build tree. With no names every
// registered recipe is checked.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	registry, err := s.loadRegistry(ctx, req.Config)
	if err != nil {
		return ValidateResult{}, err
	}
	toolchain, err := Layout(req.Config)
	if err != nil {
		return ValidateResult{}, err
	}
	names := req.Recipes
	if len(names) == 0 {
		names = registry.Names()
	}
	orchestrator := core.NewOrchestrator(registry, core.NewRecipeValidator(toolchain.Archs), nil)
	closure, err := orchestrator.Closure(ctx, names)
	if err != nil {
		return ValidateResult{}, err
	}

	graph := core.NewDependencyGraph()
	for _, name := range closure {
		recipe, _ := registry.Get(name)
		graph.AddEdge(name, name)
		for _, dep := range recipe.Descriptor().Depends {
			graph.AddEdge(name, dep)
		}
	}
	if cycle := graph.CycleNodes(); len(cycle) > 0 {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("dependency cycle involving %s", strings.Join(cycle, ", ")))
	}
	if _, err := orchestrator.Plan(ctx, names); err != nil {
		return ValidateResult{}, err
	}
	return ValidateResult{Checked: closure}, nil
}
