package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ios-toolchain/internal/app"
)

var newAppService = app.NewService

// addConfigFlags registers the flags shared by every command. Each one is
// bound to its viper key so config file and environment fill the gaps.
func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("root-dir", ".", "Toolchain root holding build, dist and .cache")
	flags.StringSlice("arch", nil, "Architectures to build (default all)")
	flags.StringSlice("recipe-dir", nil, "Directories with YAML or HCL recipe files")
	flags.String("host-python", "", "Host python used to install python modules")
	flags.String("mirror-bucket", "", "S3 bucket mirroring source archives")
	flags.String("mirror-prefix", "", "Key prefix inside the mirror bucket")
	flags.String("mirror-region", "", "Region of the mirror bucket")
	flags.String("mirror-profile", "", "AWS shared config profile for the mirror")
	flags.String("mirror-endpoint", "", "Custom S3 endpoint for the mirror")

	_ = viper.BindPFlag("root_dir", flags.Lookup("root-dir"))
	_ = viper.BindPFlag("archs", flags.Lookup("arch"))
	_ = viper.BindPFlag("recipe_dirs", flags.Lookup("recipe-dir"))
	_ = viper.BindPFlag("host_python", flags.Lookup("host-python"))
	_ = viper.BindPFlag("mirror.bucket", flags.Lookup("mirror-bucket"))
	_ = viper.BindPFlag("mirror.prefix", flags.Lookup("mirror-prefix"))
	_ = viper.BindPFlag("mirror.region", flags.Lookup("mirror-region"))
	_ = viper.BindPFlag("mirror.profile", flags.Lookup("mirror-profile"))
	_ = viper.BindPFlag("mirror.endpoint", flags.Lookup("mirror-endpoint"))
}

func loadConfig() app.Config {
	return app.Config{
		RootDir:    viper.GetString("root_dir"),
		Archs:      viper.GetStringSlice("archs"),
		RecipeDirs: viper.GetStringSlice("recipe_dirs"),
		HostPython: viper.GetString("host_python"),
		Mirror: app.MirrorConfig{
			Bucket:   viper.GetString("mirror.bucket"),
			Prefix:   viper.GetString("mirror.prefix"),
			Region:   viper.GetString("mirror.region"),
			Profile:  viper.GetString("mirror.profile"),
			Endpoint: viper.GetString("mirror.endpoint"),
		},
	}
}
