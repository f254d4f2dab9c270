package app

import (
	"context"

	"ios-toolchain/internal/adapters"
	"ios-toolchain/internal/core"
	"ios-toolchain/internal/ports"
)

func (s Service) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	registry, err := s.loadRegistry(ctx, req.Config)
	if err != nil {
		return BuildResult{}, err
	}
	toolchain, err := s.prepareToolchain(ctx, req.Config)
	if err != nil {
		return BuildResult{}, err
	}
	state := s.OpenState(toolchain.StatePath)

	var downloader ports.DownloaderPort = adapters.NewRoutingDownloaderAdapter(s.HTTP, nil)
	var mirror ports.MirrorPort
	if s.OpenMirror != nil {
		client, err := s.OpenMirror(ctx, req.Config.Mirror)
		if err != nil {
			return BuildResult{}, err
		}
		if req.Config.Mirror.Bucket != "" {
			mirror = client
		}
		downloader = adapters.NewRoutingDownloaderAdapter(s.HTTP, client)
	}

	executor := &core.Executor{
		Toolchain:  toolchain,
		State:      state,
		Memo:       core.NewStepMemo(state, s.Clock),
		Downloader: downloader,
		Mirror:     mirror,
		Archive:    s.Archive,
		Runner:     s.Runner,
		Merger:     s.Merger,
		Env:        core.NewEnvironmentBuilder(toolchain, s.Locator),
	}
	orchestrator := core.NewOrchestrator(registry, core.NewRecipeValidator(toolchain.Archs), executor)
	report, err := orchestrator.BuildRecipes(ctx, req.Recipes)
	return BuildResult{RunID: report.RunID, Order: report.Order}, err
}
