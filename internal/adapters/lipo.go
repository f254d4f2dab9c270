package adapters

import (
	"context"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

// LipoAdapter merges single-arch static libraries with lipo.
type LipoAdapter struct {
	Runner ports.CommandRunnerPort
	Tool   string
}

func NewLipoAdapter(runner ports.CommandRunnerPort) LipoAdapter {
	return LipoAdapter{Runner: runner, Tool: "lipo"}
}

func (a LipoAdapter) Merge(ctx context.Context, output string, slices []types.LibrarySlice) error {
	args := []string{"-create", "-output", output}
	for _, slice := range slices {
		args = append(args, "-arch", slice.Arch, slice.Path)
	}
	return a.Runner.Run(ctx, types.Command{Name: a.Tool, Args: args})
}

var _ ports.LibraryMergerPort = LipoAdapter{}
