package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"mhurbridge/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mhurbridge",
	Short: "Receive MHUR porting jobs and build toon materials",
	Long: "mhurbridge listens for import jobs sent by the MHUR export tool over UDP, " +
		"imports the referenced meshes and rebuilds their materials on the toon shader.",
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $MHUR_BRIDGE_CONFIG, then ./config.json or ./config/config.json)")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.LoadConfig()
}
