package ports

import (
	"context"

	"ios-toolchain/internal/types"
)

// CommandRunnerPort runs external build tools. A nonzero exit is an error.
type CommandRunnerPort interface {
	Run(ctx context.Context, cmd types.Command) error
}

// ToolchainLocatorPort resolves SDK paths and tool locations on the host.
type ToolchainLocatorPort interface {
	FindTool(ctx context.Context, sdk string, tool string) (string, error)
	SDKPath(ctx context.Context, sdk string) (string, error)
	// SDKVersions returns the newest installed device and simulator SDKs.
	SDKVersions(ctx context.Context) (device string, simulator string, err error)
	LookPath(name string) (string, bool)
}

// LibraryMergerPort combines single-arch static libraries into one.
type LibraryMergerPort interface {
	Merge(ctx context.Context, output string, slices []types.LibrarySlice) error
}
