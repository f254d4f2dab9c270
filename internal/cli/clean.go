package cli

import (
	"github.com/spf13/cobra"

	"ios-toolchain/internal/app"
)

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Clean the build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			_, err := service.Clean(commandContext(cmd), app.CleanRequest{Config: loadConfig()})
			return err
		},
	}
}

func newDistcleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "distclean",
		Short: "Clean the build, download and dist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			_, err := service.Distclean(commandContext(cmd), app.CleanRequest{Config: loadConfig()})
			return err
		},
	}
}
