package adapters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/ports"
)

// StateFileAdapter keeps the build state as one flat JSON object. The whole
// document is rewritten on every mutation.
type StateFileAdapter struct {
	Path string
	data map[string]any
}

// NewStateFileAdapter loads path. Missing or unreadable content yields an
// empty state; the file is replaced on the next write.
func NewStateFileAdapter(path string) *StateFileAdapter {
	a := &StateFileAdapter{Path: path, data: map[string]any{}}
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("unable to read the state file, starting from an empty state")
		}
		return a
	}
	var data map[string]any
	if err := json.Unmarshal(content, &data); err != nil || data == nil {
		log.Warn().Err(err).Str("path", path).Msg("unable to parse the state file, content will be replaced")
		return a
	}
	a.data = data
	return a
}

func (a *StateFileAdapter) Get(key string) (any, bool) {
	value, ok := a.data[key]
	return value, ok
}

func (a *StateFileAdapter) GetString(key string) (string, bool) {
	value, ok := a.data[key]
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

func (a *StateFileAdapter) Contains(key string) bool {
	_, ok := a.data[key]
	return ok
}

func (a *StateFileAdapter) Set(key string, value any) error {
	a.data[key] = value
	return a.sync()
}

func (a *StateFileAdapter) Delete(key string) error {
	if _, ok := a.data[key]; !ok {
		return nil
	}
	delete(a.data, key)
	return a.sync()
}

func (a *StateFileAdapter) Keys() []string {
	keys := make([]string, 0, len(a.data))
	for key := range a.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// sync writes the document to a sibling temp file, fsyncs it and renames it
// over the state file so a crash leaves either the old or the new record.
func (a *StateFileAdapter) sync() error {
	content, err := json.Marshal(a.data)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("state value is not serializable").
			WithCause(err)
	}
	dir := filepath.Dir(a.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stateError("failed to create state directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return stateError("failed to create temporary state file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return stateError("failed to write state file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return stateError("failed to flush state file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return stateError("failed to close state file", err)
	}
	if err := os.Rename(tmpPath, a.Path); err != nil {
		os.Remove(tmpPath)
		return stateError("failed to replace state file", err)
	}
	return nil
}

func stateError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.StatePort = (*StateFileAdapter)(nil)
