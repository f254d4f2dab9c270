package types

import "strings"

// IncludeDir describes one header source to copy into the unified include
// tree. Source is a template relative to the arch build directory and may
// reference {arch}. Dest optionally renames a single copied file.
type IncludeDir struct {
	Source string `yaml:"source" hcl:"source"`
	Dest   string `yaml:"dest,omitempty" hcl:"dest,optional"`
}

// RecipeDescriptor is the static description of one buildable component.
type RecipeDescriptor struct {
	Name            string       `yaml:"name"`
	Version         string       `yaml:"version"`
	URL             string       `yaml:"url"`
	Depends         []string     `yaml:"depends,omitempty"`
	OptionalDepends []string     `yaml:"optional_depends,omitempty"`
	Archs           []string     `yaml:"archs,omitempty"`
	Library         string       `yaml:"library,omitempty"`
	Libraries       []string     `yaml:"libraries,omitempty"`
	IncludeDirs     []IncludeDir `yaml:"include_dirs,omitempty"`
	IncludePerArch  bool         `yaml:"include_per_arch,omitempty"`
	Patches         []string     `yaml:"patches,omitempty"`

	// RecipeDir is where patch files are looked up. Set by the registry.
	RecipeDir string `yaml:"-"`
}

// LibraryTemplates returns Library followed by Libraries, skipping blanks.
func (d RecipeDescriptor) LibraryTemplates() []string {
	var out []string
	if strings.TrimSpace(d.Library) != "" {
		out = append(out, d.Library)
	}
	for _, lib := range d.Libraries {
		if strings.TrimSpace(lib) != "" {
			out = append(out, lib)
		}
	}
	return out
}

// SourceURL expands the {version} placeholder of the URL template.
func (d RecipeDescriptor) SourceURL() string {
	return strings.ReplaceAll(d.URL, "{version}", d.Version)
}

// StaticLibraryName is the merged library file name, lib-prefixed once.
func (d RecipeDescriptor) StaticLibraryName() string {
	name := d.Name
	if !strings.HasPrefix(name, "lib") {
		name = "lib" + name
	}
	return name + ".a"
}

// ExpandArch replaces the {arch} placeholder of a template.
func ExpandArch(template string, arch string) string {
	return strings.ReplaceAll(template, "{arch}", arch)
}
