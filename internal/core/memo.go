package core

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

// StepKey is the state key marking step as done for recipe.
func StepKey(recipe string, step types.StepName) string {
	return fmt.Sprintf("%s.%s", recipe, step)
}

// StepTimeKey holds the completion time of a step.
func StepTimeKey(recipe string, step types.StepName) string {
	return StepKey(recipe, step) + ".at"
}

func ArchiveRootKey(recipe string) string {
	return recipe + ".archive_root"
}

func VersionKey(recipe string) string {
	return recipe + ".version"
}

// StepMemo runs a step once per recipe across process restarts.
type StepMemo struct {
	State ports.StatePort
	Clock func() time.Time
}

func NewStepMemo(state ports.StatePort, clock func() time.Time) StepMemo {
	if clock == nil {
		clock = time.Now
	}
	return StepMemo{State: state, Clock: clock}
}

// Done reports whether step already completed for recipe.
func (m StepMemo) Done(recipe string, step types.StepName) bool {
	return m.State.Contains(StepKey(recipe, step))
}

// Run executes fn unless the step is recorded as done, then records it. It
// reports whether fn ran.
func (m StepMemo) Run(ctx context.Context, recipe string, step types.StepName, fn func(context.Context) error) (bool, error) {
	logger := log.Ctx(ctx).With().Str("recipe", recipe).Str("step", string(step)).Logger()
	key := StepKey(recipe, step)
	if m.State.Contains(key) {
		logger.Info().Bool("skipped", true).Msgf("(ignored) %s %s", stepTitle(step), recipe)
		return false, nil
	}
	logger.Info().Msgf("%s %s", stepTitle(step), recipe)
	if err := fn(logger.WithContext(ctx)); err != nil {
		return true, err
	}
	if err := m.State.Set(key, true); err != nil {
		return true, stateWriteError(key, err)
	}
	timeKey := StepTimeKey(recipe, step)
	if err := m.State.Set(timeKey, m.Clock().UTC().Format(time.RFC3339)); err != nil {
		return true, stateWriteError(timeKey, err)
	}
	return true, nil
}

func stateWriteError(key string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to record state %s", key)).
		WithCause(err)
}

func stepTitle(step types.StepName) string {
	switch step {
	case types.StepDownload:
		return "Download"
	case types.StepExtract:
		return "Extract"
	case types.StepBuildAll:
		return "Build"
	case types.StepMerge:
		return "Lipo"
	case types.StepInstallHeaders:
		return "Install include files for"
	case types.StepInstall:
		return "Install"
	default:
		return string(step)
	}
}
