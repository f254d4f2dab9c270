package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"
)

// CompareVersions orders two recipe version strings. PEP 440 rules are tried
// first since most upstream tags fit them; Debian ordering is the fallback
// for anything PEP 440 rejects. A leading "v" is ignored.
func CompareVersions(a string, b string) (int, error) {
	left := strings.TrimPrefix(strings.TrimSpace(a), "v")
	right := strings.TrimPrefix(strings.TrimSpace(b), "v")
	if left == right {
		return 0, nil
	}
	if v1, err := pep440.Parse(left); err == nil {
		if v2, err := pep440.Parse(right); err == nil {
			return sign(v1.Compare(v2)), nil
		}
	}
	v1, err := debversion.NewVersion(left)
	if err != nil {
		return 0, versionError(a, err)
	}
	v2, err := debversion.NewVersion(right)
	if err != nil {
		return 0, versionError(b, err)
	}
	return sign(v1.Compare(v2)), nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func versionError(value string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unparsable version %q", value)).
		WithCause(err)
}
