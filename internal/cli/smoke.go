package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var smokeShowBuild bool

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Build the image and invoke it locally once",
	Long: `Builds the platform-pinned image, runs it locally behind the runtime
interface emulator port mapping, and issues one empty invocation against
the local endpoint. Useful before pushing anything to the cloud.`,
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().BoolVar(&smokeShowBuild, "show-build", false, "Stream the engine's build output")
}

func runSmoke(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var buildOutput io.Writer
	if smokeShowBuild {
		buildOutput = os.Stdout
	}

	d, err := newDeployer(ctx, buildOutput)
	if err != nil {
		return err
	}

	fmt.Println("Building and invoking locally...")
	status, err := d.SmokeRun(ctx)
	if err != nil {
		return fmt.Errorf("smoke run failed: %w", err)
	}

	fmt.Printf("Local invocation returned HTTP %d.\n", status)
	return nil
}
