package types

// Architecture is one compilation target. Values are immutable for a run.
type Architecture struct {
	Name       string `yaml:"name"`
	SDK        string `yaml:"sdk"`
	Triple     string `yaml:"triple"`
	VersionMin string `yaml:"version_min"`
	Sysroot    string `yaml:"sysroot,omitempty"`
}

const (
	SDKSimulator = "iphonesimulator"
	SDKDevice    = "iphoneos"
)

// DefaultArchitectures lists the supported targets in build order.
func DefaultArchitectures() []Architecture {
	return []Architecture{
		{Name: "i386", SDK: SDKSimulator, Triple: "i386-apple-darwin11", VersionMin: "-miphoneos-version-min=6.0.0"},
		{Name: "x86_64", SDK: SDKSimulator, Triple: "x86_64-apple-darwin13", VersionMin: "-miphoneos-version-min=7.0"},
		{Name: "armv7", SDK: SDKDevice, Triple: "arm-apple-darwin11", VersionMin: "-miphoneos-version-min=6.0.0"},
		{Name: "arm64", SDK: SDKDevice, Triple: "aarch64-apple-darwin13", VersionMin: "-miphoneos-version-min=7.0"},
	}
}

// Toolchain is the explicitly constructed, read-only configuration shared by
// every component of a run.
type Toolchain struct {
	RootDir    string
	BuildDir   string
	CacheDir   string
	DistDir    string
	InstallDir string
	IncludeDir string
	LibDir     string
	StatePath  string
	HostPython string
	CCache     string
	SDKVersion string
	SimVersion string
	Archs      []Architecture
	BaseEnv    map[string]string
}

// Arch returns the architecture with the given name.
func (t Toolchain) Arch(name string) (Architecture, bool) {
	for _, arch := range t.Archs {
		if arch.Name == name {
			return arch, true
		}
	}
	return Architecture{}, false
}
