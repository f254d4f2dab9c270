package adapters

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/shared"
)

// OutputFunc runs a command and returns its stdout.
type OutputFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, shared.CommandError([]byte(stderr.String()), err)
	}
	return output, nil
}

// XcrunLocatorAdapter resolves SDK tools through xcrun and xcodebuild.
// Lookups are cached for the life of the process.
type XcrunLocatorAdapter struct {
	Output   OutputFunc
	Which    func(string) (string, error)
	mu       sync.Mutex
	resolved map[string]string
}

func NewXcrunLocatorAdapter() *XcrunLocatorAdapter {
	return &XcrunLocatorAdapter{Output: execOutput, Which: exec.LookPath, resolved: map[string]string{}}
}

func (a *XcrunLocatorAdapter) FindTool(ctx context.Context, sdk string, tool string) (string, error) {
	return a.cached(ctx, "find:"+sdk+":"+tool, "xcrun", "-find", "-sdk", sdk, tool)
}

func (a *XcrunLocatorAdapter) SDKPath(ctx context.Context, sdk string) (string, error) {
	return a.cached(ctx, "sdk:"+sdk, "xcrun", "--sdk", sdk, "--show-sdk-path")
}

// SDKVersions parses "xcodebuild -showsdks" for the first iphoneos and
// iphonesimulator entries.
func (a *XcrunLocatorAdapter) SDKVersions(ctx context.Context) (string, string, error) {
	output, err := a.Output(ctx, "xcodebuild", "-showsdks")
	if err != nil {
		return "", "", locatorError("xcodebuild -showsdks failed", err)
	}
	device, simulator := ParseSDKVersions(string(output))
	if device == "" {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no iphoneos SDK installed")
	}
	if simulator == "" {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no iphonesimulator SDK installed")
	}
	return device, simulator, nil
}

func (a *XcrunLocatorAdapter) LookPath(name string) (string, bool) {
	path, err := a.Which(name)
	return path, err == nil && path != ""
}

func (a *XcrunLocatorAdapter) cached(ctx context.Context, key string, name string, args ...string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if value, ok := a.resolved[key]; ok {
		return value, nil
	}
	output, err := a.Output(ctx, name, args...)
	if err != nil {
		return "", locatorError(fmt.Sprintf("%s failed", shared.FormatCommand(name, args)), err)
	}
	value := strings.TrimSpace(string(output))
	if value == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s returned nothing", shared.FormatCommand(name, args)))
	}
	a.resolved[key] = value
	return value, nil
}

// ParseSDKVersions extracts versions from lines such as
// "iOS 14.5 -sdk iphoneos14.5".
func ParseSDKVersions(output string) (string, string) {
	var device, simulator string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		last := fields[len(fields)-1]
		switch {
		case simulator == "" && strings.HasPrefix(last, "iphonesimulator"):
			simulator = strings.TrimPrefix(last, "iphonesimulator")
		case device == "" && strings.HasPrefix(last, "iphoneos"):
			device = strings.TrimPrefix(last, "iphoneos")
		}
	}
	return device, simulator
}

func locatorError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.ToolchainLocatorPort = (*XcrunLocatorAdapter)(nil)
