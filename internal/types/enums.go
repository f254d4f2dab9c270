package types

// StepName identifies a memoized lifecycle step.
type StepName string

const (
	StepDownload       StepName = "download"
	StepExtract        StepName = "extract"
	StepBuildAll       StepName = "build_all"
	StepMerge          StepName = "make_lipo"
	StepInstallHeaders StepName = "install_include"
	StepInstall        StepName = "install"
)

// Marker names a flag file inside an arch build directory.
type Marker string

const (
	MarkerBuilding  Marker = "building"
	MarkerBuildDone Marker = "build_done"
)

// HookPhase is one of the per-arch build phases.
type HookPhase string

const (
	PhasePrebuild  HookPhase = "prebuild"
	PhaseBuild     HookPhase = "build"
	PhasePostbuild HookPhase = "postbuild"
)
