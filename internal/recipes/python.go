package recipes

import (
	"context"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

// PythonVersion is the CPython series the distribution tree is laid out for.
const PythonVersion = "3.9"

// PythonPrefix is where Python extension modules are installed.
func PythonPrefix(toolchain types.Toolchain) string {
	return filepath.Join(toolchain.InstallDir, "python3")
}

func SitePackagesDir(toolchain types.Toolchain) string {
	return filepath.Join(PythonPrefix(toolchain), "lib", "python"+PythonVersion, "site-packages")
}

// SetupPyInstall runs "setup.py install" from dir (relative to the first
// arch build directory) into the distribution's Python prefix.
func SetupPyInstall(ctx context.Context, i ports.InstallContext, dir string) error {
	if i.Toolchain.HostPython == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("host python is not configured")
	}
	arch := i.Archs[0]
	env := WithEnv(i.Env, nil)
	env["PYTHONPATH"] = SitePackagesDir(i.Toolchain)
	return i.Runner.Run(ctx, types.Command{
		Name: i.Toolchain.HostPython,
		Args: []string{"setup.py", "install", "--prefix", PythonPrefix(i.Toolchain)},
		Dir:  filepath.Join(i.BuildDirs[arch.Name], dir),
		Env:  env,
	})
}
