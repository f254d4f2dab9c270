package app

import "context"

func (s Service) ListRecipes(ctx context.Context, req RecipesRequest) (RecipesResult, error) {
	registry, err := s.loadRegistry(ctx, req.Config)
	if err != nil {
		return RecipesResult{}, err
	}
	result := RecipesResult{}
	for _, name := range registry.Names() {
		recipe, _ := registry.Get(name)
		desc := recipe.Descriptor()
		result.Recipes = append(result.Recipes, RecipeSummary{
			Name:    desc.Name,
			Version: desc.Version,
			Depends: desc.Depends,
		})
	}
	return result, nil
}
