package cli

import (
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"ios-toolchain/internal/app"
	"ios-toolchain/internal/types"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Give a status of the build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	service := newAppService()
	result, err := service.Status(commandContext(cmd), app.StatusRequest{Config: loadConfig()})
	if err != nil {
		return err
	}
	for _, status := range result.Recipes {
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s - %s\n", status.Name, statusLine(status))
	}
	return nil
}

func statusLine(status types.RecipeStatus) string {
	if !status.Built {
		return color.Gray.Sprint("Not built")
	}
	line := color.Green.Sprintf("Build OK (built at %s)", status.BuiltAt)
	switch {
	case status.Outdated:
		line += color.Yellow.Sprintf(", outdated (built %s, recipe %s)", status.BuiltVersion, status.Version)
	case status.DowngradeBuilt:
		line += color.Yellow.Sprintf(", newer than recipe (built %s, recipe %s)", status.BuiltVersion, status.Version)
	}
	return line
}
