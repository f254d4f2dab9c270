package app

import (
	"context"
	"os"
	"time"

	"ios-toolchain/internal/adapters"
	"ios-toolchain/internal/ports"
)

// MirrorClient serves the archive mirror and s3:// source URLs.
type MirrorClient interface {
	ports.MirrorPort
	ports.DownloaderPort
}

type Service struct {
	Locator      ports.ToolchainLocatorPort
	Runner       ports.CommandRunnerPort
	Merger       ports.LibraryMergerPort
	Archive      ports.ArchivePort
	HTTP         ports.DownloaderPort
	RecipeSource ports.RecipeSourcePort
	OpenState    func(path string) ports.StatePort
	OpenMirror   func(ctx context.Context, cfg MirrorConfig) (MirrorClient, error)
	Environ      func() []string
	Clock        func() time.Time
}

func NewService() Service {
	runner := adapters.NewExecRunnerAdapter(os.Stdout)
	return Service{
		Locator:      adapters.NewXcrunLocatorAdapter(),
		Runner:       runner,
		Merger:       adapters.NewLipoAdapter(runner),
		Archive:      adapters.NewArchiveAdapter(),
		HTTP:         adapters.NewHTTPDownloaderAdapter(),
		RecipeSource: adapters.NewRecipeFileAdapter(),
		OpenState: func(path string) ports.StatePort {
			return adapters.NewStateFileAdapter(path)
		},
		OpenMirror: func(ctx context.Context, cfg MirrorConfig) (MirrorClient, error) {
			return adapters.NewS3MirrorAdapter(ctx, adapters.S3MirrorConfig{
				Bucket:   cfg.Bucket,
				Prefix:   cfg.Prefix,
				Region:   cfg.Region,
				Profile:  cfg.Profile,
				Endpoint: cfg.Endpoint,
			})
		},
		Environ: os.Environ,
		Clock:   time.Now,
	}
}
