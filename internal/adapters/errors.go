package adapters

import "github.com/ZanzyTHEbar/errbuilder-go"

func internalError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}
