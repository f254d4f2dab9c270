package types

// RecipeStatus is the read-only view used by the status command.
type RecipeStatus struct {
	Name           string
	Version        string
	Built          bool
	BuiltAt        string
	BuiltVersion   string
	Outdated       bool
	DowngradeBuilt bool
}
