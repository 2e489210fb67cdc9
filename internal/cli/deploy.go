package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var deployShowBuild bool

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the function and expose its public endpoint",
	Long: `Runs the full reconciliation pipeline against the deployment target.

The pipeline checks prerequisites, resolves the caller identity, ensures the
repository and execution role, builds and verifies the image, pushes it, and
creates or updates the function and its public endpoint.`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVar(&deployShowBuild, "show-build", false, "Stream the engine's build and push output")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var buildOutput io.Writer
	if deployShowBuild {
		buildOutput = os.Stdout
	}

	d, err := newDeployer(ctx, buildOutput)
	if err != nil {
		return err
	}

	outcome, err := d.Run(ctx)
	if err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	if outcome.FunctionCreated {
		fmt.Println("\nDeploy complete! Function created.")
	} else {
		fmt.Println("\nDeploy complete! Function updated.")
	}
	fmt.Println("\nOutputs:")
	fmt.Printf("  account      = %s\n", outcome.AccountID)
	fmt.Printf("  repository   = %s\n", outcome.RepositoryURI)
	fmt.Printf("  role         = %s\n", outcome.RoleARN)
	fmt.Printf("  image        = %s\n", outcome.ImageURI)
	fmt.Printf("  function     = %s\n", outcome.FunctionARN)
	fmt.Printf("  endpoint_url = %s\n", outcome.EndpointURL)
	return nil
}
