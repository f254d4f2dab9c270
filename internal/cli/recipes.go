package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ios-toolchain/internal/app"
)

type recipesOptions struct {
	Compact bool
}

func newRecipesCommand() *cobra.Command {
	opts := recipesOptions{}
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List all the available recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecipes(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "Produce a compact list suitable for scripting")
	_ = viper.BindPFlag("compact", cmd.Flags().Lookup("compact"))
	return cmd
}

func runRecipes(cmd *cobra.Command, opts recipesOptions) error {
	service := newAppService()
	result, err := service.ListRecipes(commandContext(cmd), app.RecipesRequest{Config: loadConfig()})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if resolveBool(cmd, opts.Compact, "compact", "compact") {
		names := make([]string, 0, len(result.Recipes))
		for _, recipe := range result.Recipes {
			names = append(names, recipe.Name)
		}
		fmt.Fprintln(out, strings.Join(names, " "))
		return nil
	}
	for _, recipe := range result.Recipes {
		fmt.Fprintf(out, "%-12s %-8s\n", recipe.Name, recipe.Version)
	}
	return nil
}
