package app

import (
	"context"
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/shared"
)

// Clean removes the build tree. Downloads, installed files and the state
// record are kept.
func (s Service) Clean(ctx context.Context, req CleanRequest) (CleanResult, error) {
	toolchain, err := Layout(req.Config)
	if err != nil {
		return CleanResult{}, err
	}
	return removeDirs(ctx, toolchain.BuildDir)
}

// Distclean removes the build tree, the dist tree (state record included)
// and the download cache.
func (s Service) Distclean(ctx context.Context, req CleanRequest) (CleanResult, error) {
	toolchain, err := Layout(req.Config)
	if err != nil {
		return CleanResult{}, err
	}
	return removeDirs(ctx, toolchain.BuildDir, toolchain.DistDir, toolchain.CacheDir)
}

func removeDirs(ctx context.Context, dirs ...string) (CleanResult, error) {
	result := CleanResult{}
	for _, dir := range dirs {
		if !shared.PathExists(dir) {
			continue
		}
		log.Ctx(ctx).Info().Str("dir", dir).Msgf("Remove %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return result, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to remove %s", dir)).
				WithCause(err)
		}
		result.Removed = append(result.Removed, dir)
	}
	return result, nil
}
