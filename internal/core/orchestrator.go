package core

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/ports"
)

// Orchestrator builds requested recipes and their dependencies strictly one
// at a time in dependency order, so each recipe sees what earlier ones
// installed.
type Orchestrator struct {
	Registry  ports.RecipeRegistryPort
	Validator RecipeValidator
	Executor  *Executor
}

func NewOrchestrator(registry ports.RecipeRegistryPort, validator RecipeValidator, executor *Executor) Orchestrator {
	return Orchestrator{Registry: registry, Validator: validator, Executor: executor}
}

// BuildReport summarises one BuildRecipes call.
type BuildReport struct {
	RunID string
	Order []string
}

// BuildRecipes resolves the dependency closure of names, orders it and runs
// every recipe's lifecycle. Unknown names and cycles fail before anything is
// built; the first failing step aborts the run.
func (o Orchestrator) BuildRecipes(ctx context.Context, names []string) (BuildReport, error) {
	runID := uuid.NewString()
	logger := log.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)
	if len(names) == 0 {
		return BuildReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no recipe requested")
	}
	logger.Info().Strs("recipes", names).Msgf("Want to build %s", strings.Join(names, ", "))

	order, err := o.Plan(ctx, names)
	if err != nil {
		return BuildReport{}, err
	}
	logger.Info().Strs("order", order).Msgf("Build order is %s", strings.Join(order, ", "))

	recipes := make([]ports.Recipe, 0, len(order))
	for _, name := range order {
		recipe, _ := o.Registry.Get(name)
		recipes = append(recipes, recipe)
	}
	for _, recipe := range recipes {
		desc := recipe.Descriptor()
		if len(desc.IncludeDirs) > 0 {
			subdir := IncludeSubdir(desc)
			logger.Debug().Str("recipe", desc.Name).Msgf("Include dir added: %s", subdir)
			o.Executor.Env.RegisterIncludeDir(subdir)
		}
	}
	for _, recipe := range recipes {
		if err := o.Executor.Execute(ctx, recipe); err != nil {
			return BuildReport{RunID: runID, Order: order}, err
		}
	}
	return BuildReport{RunID: runID, Order: order}, nil
}

// Plan returns the build order for names and their transitive dependencies
// without building anything.
func (o Orchestrator) Plan(ctx context.Context, names []string) ([]string, error) {
	closure, err := o.Closure(ctx, names)
	if err != nil {
		return nil, err
	}
	graph := NewDependencyGraph()
	for _, name := range closure {
		recipe, _ := o.Registry.Get(name)
		graph.AddEdge(name, name)
		for _, dep := range recipe.Descriptor().Depends {
			graph.AddEdge(name, dep)
		}
	}
	for _, name := range closure {
		recipe, _ := o.Registry.Get(name)
		for _, dep := range recipe.Descriptor().OptionalDepends {
			graph.AddOptionalEdge(name, dep)
		}
	}
	return graph.Order()
}

// Closure returns names plus every transitive mandatory dependency, in
// discovery order, validating each descriptor on the way.
func (o Orchestrator) Closure(ctx context.Context, names []string) ([]string, error) {
	var closure []string
	loaded := map[string]struct{}{}
	queue := append([]string(nil), names...)
	requiredBy := map[string]string{}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := loaded[name]; ok {
			continue
		}
		recipe, ok := o.Registry.Get(name)
		if !ok {
			msg := fmt.Sprintf("no recipe named %s", name)
			if parent, ok := requiredBy[name]; ok {
				msg = fmt.Sprintf("no recipe named %s (required by %s)", name, parent)
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(msg)
		}
		desc := recipe.Descriptor()
		assert.NotEmpty(ctx, desc.Name, "registered recipe must have a name")
		if err := o.Validator.Validate(ctx, desc); err != nil {
			return nil, err
		}
		log.Ctx(ctx).Debug().Str("recipe", name).Strs("depends", desc.Depends).Msg("loaded recipe")
		loaded[name] = struct{}{}
		closure = append(closure, name)
		for _, dep := range desc.Depends {
			if _, ok := requiredBy[dep]; !ok {
				requiredBy[dep] = name
			}
			queue = append(queue, dep)
		}
	}
	return closure, nil
}
