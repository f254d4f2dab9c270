package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/shared"
	"ios-toolchain/internal/types"
)

const defaultTailLines = 40

// ExecRunnerAdapter runs external tools, streaming stdout and stderr as one
// interleaved line stream. No timeout is imposed.
type ExecRunnerAdapter struct {
	Out       io.Writer
	TailLines int
}

func NewExecRunnerAdapter(out io.Writer) ExecRunnerAdapter {
	if out == nil {
		out = os.Stdout
	}
	return ExecRunnerAdapter{Out: out, TailLines: defaultTailLines}
}

func (a ExecRunnerAdapter) Run(ctx context.Context, cmd types.Command) error {
	rendered := shared.FormatCommand(cmd.Name, cmd.Args)
	log.Ctx(ctx).Debug().Str("dir", cmd.Dir).Msgf("run %s", rendered)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if cmd.Env != nil {
		c.Env = EnvList(cmd.Env)
	}
	lines := &lineWriter{out: a.Out, max: a.TailLines}
	c.Stdout = lines
	c.Stderr = lines
	err := c.Run()
	lines.flush()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("command failed: %s", rendered)).
			WithCause(shared.CommandError([]byte(strings.Join(lines.tail, "\n")), err))
	}
	return nil
}

// EnvList renders env as sorted KEY=VALUE entries.
func EnvList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for key, value := range env {
		list = append(list, key+"="+value)
	}
	sort.Strings(list)
	return list
}

// lineWriter forwards complete lines and keeps the last max of them.
type lineWriter struct {
	out     io.Writer
	max     int
	pending []byte
	tail    []string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		idx := bytes.IndexByte(w.pending, '\n')
		if idx == -1 {
			break
		}
		w.emit(string(w.pending[:idx]))
		w.pending = w.pending[idx+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.pending) > 0 {
		w.emit(string(w.pending))
		w.pending = nil
	}
}

func (w *lineWriter) emit(line string) {
	if w.out != nil {
		fmt.Fprintln(w.out, line)
	}
	w.tail = append(w.tail, line)
	if w.max > 0 && len(w.tail) > w.max {
		w.tail = w.tail[len(w.tail)-w.max:]
	}
}

var _ ports.CommandRunnerPort = ExecRunnerAdapter{}
