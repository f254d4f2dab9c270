package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ios-toolchain/internal/app"
)

func newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build <recipe>...",
		Short: "Build recipes and their dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args)
		},
	}
}

func runBuild(cmd *cobra.Command, recipes []string) error {
	service := newAppService()
	result, err := service.Build(commandContext(cmd), app.BuildRequest{
		Config:  loadConfig(),
		Recipes: recipes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "built: %s\n", strings.Join(result.Order, " "))
	return nil
}
