package core

import (
	"context"
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ios-toolchain/internal/types"
)

func TestStepMemoRunsOnce(t *testing.T) {
	state := newMemState()
	memo := NewStepMemo(state, fixedClock)
	calls := 0
	step := func(context.Context) error {
		calls++
		return nil
	}

	ran, err := memo.Run(t.Context(), "zlib", types.StepDownload, step)
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = memo.Run(t.Context(), "zlib", types.StepDownload, step)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, calls)

	assert.Equal(t, true, state.data["zlib.download"])
	assert.Equal(t, "2024-05-01T10:00:00Z", state.data["zlib.download.at"])
	assert.True(t, memo.Done("zlib", types.StepDownload))
	assert.False(t, memo.Done("zlib", types.StepExtract))
}

func TestStepMemoFailureIsNotRecorded(t *testing.T) {
	state := newMemState()
	memo := NewStepMemo(state, fixedClock)

	_, err := memo.Run(t.Context(), "zlib", types.StepExtract, func(context.Context) error {
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, state.Keys())

	calls := 0
	ran, err := memo.Run(t.Context(), "zlib", types.StepExtract, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, calls)
}

func TestStepMemoStateWriteFailure(t *testing.T) {
	state := newMemState()
	state.failOn = "zlib.install"
	memo := NewStepMemo(state, fixedClock)

	_, err := memo.Run(t.Context(), "zlib", types.StepInstall, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	assert.False(t, memo.Done("zlib", types.StepInstall))
}

func TestStateKeys(t *testing.T) {
	assert.Equal(t, "openmp.build_all", StepKey("openmp", types.StepBuildAll))
	assert.Equal(t, "openmp.build_all.at", StepTimeKey("openmp", types.StepBuildAll))
	assert.Equal(t, "openmp.archive_root", ArchiveRootKey("openmp"))
	assert.Equal(t, "openmp.version", VersionKey("openmp"))
}
