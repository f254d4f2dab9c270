package adapters

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"ios-toolchain/internal/types"
)

type capturingRunner struct {
	commands []types.Command
}

func (r *capturingRunner) Run(_ context.Context, cmd types.Command) error {
	r.commands = append(r.commands, cmd)
	return nil
}

func TestLipoMerge(t *testing.T) {
	runner := &capturingRunner{}
	err := NewLipoAdapter(runner).Merge(t.Context(), "/dist/lib/libr.a", []types.LibrarySlice{
		{Arch: "x86_64", Path: "/build/r/x86_64/r-1.0/libr.a"},
		{Arch: "arm64", Path: "/build/r/arm64/r-1.0/libr.a"},
	})
	require.NoError(t, err)
	want := []types.Command{{
		Name: "lipo",
		Args: []string{
			"-create", "-output", "/dist/lib/libr.a",
			"-arch", "x86_64", "/build/r/x86_64/r-1.0/libr.a",
			"-arch", "arm64", "/build/r/arm64/r-1.0/libr.a",
		},
	}}
	if diff := cmp.Diff(want, runner.commands); diff != "" {
		t.Fatalf("unexpected lipo invocation (-want +got):\n%s", diff)
	}
}
