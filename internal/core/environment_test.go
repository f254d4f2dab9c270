package core

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHostEnv(t *testing.T) {
	env := SanitizeHostEnv([]string{
		"PATH=/usr/bin",
		"HOME=/Users/dev",
		"CFLAGS=-O0",
		"LDFLAGS=-L/opt/lib",
		"ARCHFLAGS=-arch x86_64",
		"MACOSX_DEPLOYMENT_TARGET=10.15",
		"PYTHONDONTWRITEBYTECODE=1",
		"EQUALS=a=b",
		"malformed",
	})
	want := map[string]string{"PATH": "/usr/bin", "HOME": "/Users/dev", "EQUALS": "a=b"}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Fatalf("unexpected environment (-want +got):\n%s", diff)
	}
}

func TestEnvironment(t *testing.T) {
	toolchain := testToolchain("/tc", "arm64")
	toolchain.CCache = "/usr/local/bin/ccache"
	builder := NewEnvironmentBuilder(toolchain, fakeLocator{})
	builder.RegisterIncludeDir(filepath.Join("common", "openssl"))
	builder.RegisterIncludeDir(filepath.Join("{arch}", "ffi"))
	builder.RegisterIncludeDir(filepath.Join("common", "openssl"))

	arch := toolchain.Archs[0]
	env, err := builder.Environment(t.Context(), arch)
	require.NoError(t, err)

	includes := "-I/tc/dist/include/common/openssl -I/tc/dist/include/arm64/ffi"
	assert.Equal(t, "/usr/local/bin/ccache /xcode/iphoneos/clang", env["CC"])
	assert.Equal(t, "/usr/local/bin/ccache /xcode/iphoneos/clang++", env["CXX"])
	assert.Equal(t, "/xcode/iphoneos/ar", env["AR"])
	assert.Equal(t, "/xcode/iphoneos/ld", env["LD"])
	assert.Equal(t, includes, env["OTHER_CFLAGS"])
	assert.Equal(t, "-L/tc/dist/lib", env["OTHER_LDFLAGS"])
	assert.Equal(t,
		"-arch arm64 -pipe -no-cpp-precomp --sysroot /sdk/iphoneos -O3 -miphoneos-version-min=7.0 "+includes,
		env["CFLAGS"])
	assert.Equal(t, env["CFLAGS"], env["CXXFLAGS"])
	assert.Equal(t,
		"-arch arm64 --sysroot /sdk/iphoneos -L/tc/dist/lib -lsqlite3 -undefined dynamic_lookup -miphoneos-version-min=7.0",
		env["LDFLAGS"])
	assert.Equal(t, "/usr/bin", env["PATH"])
}

func TestEnvironmentIsFreshPerCall(t *testing.T) {
	toolchain := testToolchain("/tc", "arm64")
	builder := NewEnvironmentBuilder(toolchain, fakeLocator{})
	arch := toolchain.Archs[0]

	first, err := builder.Environment(t.Context(), arch)
	require.NoError(t, err)
	first["CFLAGS"] = "mutated"
	second, err := builder.Environment(t.Context(), arch)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", second["CFLAGS"])
	assert.Equal(t, "/usr/bin", toolchain.BaseEnv["PATH"])
}
