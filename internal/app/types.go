package app

import "ios-toolchain/internal/types"

// Config is the resolved configuration shared by every command.
type Config struct {
	RootDir    string
	Archs      []string
	RecipeDirs []string
	HostPython string
	Mirror     MirrorConfig
}

type MirrorConfig struct {
	Bucket   string
	Prefix   string
	Region   string
	Profile  string
	Endpoint string
}

type BuildRequest struct {
	Config  Config
	Recipes []string
}

type BuildResult struct {
	RunID string
	Order []string
}

type RecipesRequest struct {
	Config Config
}

type RecipeSummary struct {
	Name    string
	Version string
	Depends []string
}

type RecipesResult struct {
	Recipes []RecipeSummary
}

type StatusRequest struct {
	Config Config
}

type StatusResult struct {
	Recipes []types.RecipeStatus
}

type CleanRequest struct {
	Config Config
}

type CleanResult struct {
	Removed []string
}

type ValidateRequest struct {
	Config  Config
	Recipes []string
}

type ValidateResult struct {
	Checked []string
}
