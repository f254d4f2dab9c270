package recipes

import (
	"context"
	"path/filepath"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

// NewFaiss builds the faiss similarity search library and its SWIG Python
// bindings, then installs the Python package into the distribution.
func NewFaiss() Base {
	return Base{
		Desc: types.RecipeDescriptor{
			Name:            "faiss",
			Version:         "v1.7.1",
			URL:             "https://github.com/facebookresearch/faiss/archive/refs/tags/{version}.tar.gz",
			Depends:         []string{"openmp"},
			OptionalDepends: []string{"python3", "numpy"},
			IncludePerArch:  true,
			Libraries:       []string{"build/faiss/libfaiss.a"},
		},
		Build:     ports.HookTable{ports.AnyArch: buildFaiss},
		InstallFn: installFaiss,
	}
}

func buildFaiss(ctx context.Context, bc ports.BuildContext) error {
	tc := bc.Toolchain
	ompInclude := filepath.Join(tc.IncludeDir, bc.Arch.Name, "openmp")
	bc.Env = WithEnv(bc.Env, map[string]string{"CXXFLAGS": "-std=c++11 -I" + ompInclude})
	pythonPrefix := PythonPrefix(tc)
	if err := Run(ctx, bc, ".", "cmake",
		"-Bbuild",
		"-S.",
		"-DFAISS_ENABLE_GPU=OFF",
		"-DBUILD_SHARED_LIBS=OFF",
		"-DCMAKE_SYSTEM_NAME=iOS",
		"-DCMAKE_OSX_ARCHITECTURES="+bc.Arch.Name,
		"-DCMAKE_OSX_SYSROOT="+bc.Arch.Sysroot,
		"-DCMAKE_CXX_COMPILER=/usr/bin/clang++",
		"-DCMAKE_CXX_COMPILER_ID=AppleClang",
		"-DOpenMP_CXX_FLAGS=-Xclang -fopenmp",
		"-DOpenMP_CXX_LIB_NAMES=omp",
		"-DOpenMP_omp_LIBRARY="+filepath.Join(tc.LibDir, "libomp.a"),
		"-DBLA_VENDOR=Apple",
		"-DPython_EXECUTABLE="+tc.HostPython,
		"-DPython_INCLUDE_DIR="+filepath.Join(pythonPrefix, "include", "python"+PythonVersion),
	); err != nil {
		return err
	}
	if err := Run(ctx, bc, ".", "make", "-C", "build", "-j", "faiss"); err != nil {
		return err
	}
	return Run(ctx, bc, ".", "make", "-C", "build", "-j", "swigfaiss")
}

func installFaiss(ctx context.Context, i ports.InstallContext) error {
	return SetupPyInstall(ctx, i, filepath.Join("build", "faiss", "python"))
}
