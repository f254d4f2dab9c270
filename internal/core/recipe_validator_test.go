package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ios-toolchain/internal/types"
)

func TestRecipeValidator(t *testing.T) {
	validator := NewRecipeValidator(types.DefaultArchitectures())
	valid := func() types.RecipeDescriptor {
		return types.RecipeDescriptor{
			Name:        "libffi",
			Version:     "3.4.2",
			URL:         "https://example.org/libffi-{version}.tar.gz",
			Depends:     []string{"hostlibffi"},
			Archs:       []string{"arm64"},
			Library:     "build_iphoneos-{arch}/.libs/libffi.a",
			IncludeDirs: []types.IncludeDir{{Source: "build_iphoneos-{arch}/include"}},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*types.RecipeDescriptor)
		wantErr string
	}{
		{name: "valid", mutate: func(*types.RecipeDescriptor) {}},
		{name: "literal url", mutate: func(d *types.RecipeDescriptor) { d.URL = "https://example.org/libffi.tar.gz" }},
		{
			name:    "bad name",
			mutate:  func(d *types.RecipeDescriptor) { d.Name = "LibFFI" },
			wantErr: "invalid recipe LibFFI: name must match [a-z0-9][a-z0-9_.-]*",
		},
		{
			name:    "missing version",
			mutate:  func(d *types.RecipeDescriptor) { d.Version = " " },
			wantErr: "invalid recipe libffi: version must be set",
		},
		{
			name:    "missing url",
			mutate:  func(d *types.RecipeDescriptor) { d.URL = "" },
			wantErr: "invalid recipe libffi: url must be set",
		},
		{
			name:    "url placeholder",
			mutate:  func(d *types.RecipeDescriptor) { d.URL = "https://example.org/{name}.tar.gz" },
			wantErr: `invalid recipe libffi: url "https://example.org/{name}.tar.gz" uses unsupported placeholder {name}`,
		},
		{
			name:    "self dependency",
			mutate:  func(d *types.RecipeDescriptor) { d.Depends = []string{"libffi"} },
			wantErr: "invalid recipe libffi: recipe depends on itself",
		},
		{
			name:    "duplicate dependency",
			mutate:  func(d *types.RecipeDescriptor) { d.OptionalDepends = []string{"hostlibffi"} },
			wantErr: "invalid recipe libffi: dependency hostlibffi listed twice",
		},
		{
			name:    "unknown arch",
			mutate:  func(d *types.RecipeDescriptor) { d.Archs = []string{"ppc"} },
			wantErr: "invalid recipe libffi: unknown architecture ppc",
		},
		{
			name:    "library placeholder",
			mutate:  func(d *types.RecipeDescriptor) { d.Library = "build/{sdk}/libffi.a" },
			wantErr: `invalid recipe libffi: library "build/{sdk}/libffi.a" uses unsupported placeholder {sdk}`,
		},
		{
			name:    "absolute library",
			mutate:  func(d *types.RecipeDescriptor) { d.Library = "/usr/lib/libffi.a" },
			wantErr: "invalid recipe libffi: library /usr/lib/libffi.a must be relative to the build directory",
		},
		{
			name: "colliding libraries",
			mutate: func(d *types.RecipeDescriptor) {
				d.Library = ""
				d.Libraries = []string{"a/libx.a", "b/libx.a"}
			},
			wantErr: "invalid recipe libffi: libraries a/libx.a and b/libx.a merge into the same libx.a",
		},
		{
			name:    "empty include source",
			mutate:  func(d *types.RecipeDescriptor) { d.IncludeDirs = []types.IncludeDir{{Dest: "x.h"}} },
			wantErr: "invalid recipe libffi: include dir source must be set",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := valid()
			tt.mutate(&desc)
			err := validator.Validate(t.Context(), desc)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			assert.Equal(t, tt.wantErr, errMsg(t, err))
		})
	}
}
