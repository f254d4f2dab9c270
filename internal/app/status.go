package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/core"
	"ios-toolchain/internal/types"
)

// Status reports, for every known recipe, whether its whole lifecycle
// completed and whether the recorded version lags the recipe.
func (s Service) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	registry, err := s.loadRegistry(ctx, req.Config)
	if err != nil {
		return StatusResult{}, err
	}
	toolchain, err := Layout(req.Config)
	if err != nil {
		return StatusResult{}, err
	}
	state := s.OpenState(toolchain.StatePath)

	result := StatusResult{}
	for _, name := range registry.Names() {
		recipe, _ := registry.Get(name)
		desc := recipe.Descriptor()
		status := types.RecipeStatus{Name: name, Version: desc.Version}
		if state.Contains(core.StepKey(name, types.StepBuildAll)) {
			status.Built = true
			status.BuiltAt, _ = state.GetString(core.StepTimeKey(name, types.StepBuildAll))
			status.BuiltVersion, _ = state.GetString(core.VersionKey(name))
		}
		if status.Built && status.BuiltVersion != "" {
			cmp, err := core.CompareVersions(status.BuiltVersion, desc.Version)
			switch {
			case err != nil:
				log.Ctx(ctx).Debug().Err(err).Str("recipe", name).Msg("cannot compare versions")
				status.Outdated = status.BuiltVersion != desc.Version
			case cmp < 0:
				status.Outdated = true
			case cmp > 0:
				status.DowngradeBuilt = true
			}
		}
		result.Recipes = append(result.Recipes, status)
	}
	return result, nil
}
