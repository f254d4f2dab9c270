package types

// Command is one external process invocation. Env is passed verbatim; a nil
// Env inherits nothing beyond what the runner adds.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string
}

// LibrarySlice is one single-architecture static library feeding a merge.
type LibrarySlice struct {
	Arch string
	Path string
}
