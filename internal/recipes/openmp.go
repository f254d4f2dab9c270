package recipes

import (
	"context"
	"os"
	"path/filepath"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/types"
)

// NewOpenMP builds the LLVM OpenMP runtime as a static library.
func NewOpenMP() Base {
	return Base{
		Desc: types.RecipeDescriptor{
			Name:           "openmp",
			Version:        "12.0.1",
			URL:            "https://github.com/llvm/llvm-project/releases/download/llvmorg-{version}/openmp-{version}.src.tar.xz",
			IncludePerArch: true,
			Libraries:      []string{"build/runtime/src/libomp.a"},
			IncludeDirs:    []types.IncludeDir{{Source: "build/runtime/src/omp.h"}},
		},
		Build: ports.HookTable{ports.AnyArch: buildOpenMP},
	}
}

func buildOpenMP(ctx context.Context, bc ports.BuildContext) error {
	if err := os.MkdirAll(filepath.Join(bc.BuildDir, "build"), 0o755); err != nil {
		return err
	}
	bc.Env = WithEnv(bc.Env, map[string]string{"CXXFLAGS": "-std=c++11 -fembed-bitcode"})
	if err := Run(ctx, bc, "build", "cmake", "..",
		"-DLIBOMP_ENABLE_SHARED=OFF",
		"-DCMAKE_SYSTEM_NAME=Darwin",
		"-DCMAKE_OSX_ARCHITECTURES="+bc.Arch.Name,
		"-DCMAKE_OSX_SYSROOT="+bc.Arch.Sysroot,
		"-DCMAKE_C_COMPILER=/usr/bin/clang",
		"-DCMAKE_C_COMPILER_ID=AppleClang",
		"-DCMAKE_CXX_COMPILER=/usr/bin/clang++",
		"-DCMAKE_CXX_COMPILER_ID=AppleClang",
	); err != nil {
		return err
	}
	return Run(ctx, bc, "build", "make")
}
