package cli

import (
	"github.com/spf13/cobra"

	"github.com/funcship-io/funcship/internal/logging"
)

var (
	configPath string
	logLevel   string
	flagRegion string
	flagTag    string
)

var rootCmd = &cobra.Command{
	Use:   "funcship",
	Short: "Ship a containerized function to a public serverless endpoint",
	Long: `Funcship reconciles a containerized function deployment end to end:

  • Ensures the container registry repository and execution role exist
  • Builds a platform-pinned image and verifies its architecture
  • Pushes the image and creates or updates the function
  • Exposes a public HTTPS endpoint with an unauthenticated-invoke policy

Every resource-creating step checks for the resource first, so repeated
runs are safe.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML file overriding the built-in deployment target")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "Override the target region")
	rootCmd.PersistentFlags().StringVar(&flagTag, "tag", "", "Override the image tag")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(smokeCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(versionCmd)
}
