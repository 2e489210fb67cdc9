package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var destroyAutoApprove bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Tear down everything deploy creates",
	Long: `Destroys the deployment target's resources in reverse order: public
endpoint, function, execution role, and repository.

Every step tolerates the resource being gone already, so a partially
torn-down target can be destroyed again.`,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip interactive approval before destroying")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := newDeployer(ctx, nil)
	if err != nil {
		return err
	}

	if !destroyAutoApprove {
		fmt.Print("This deletes the endpoint, function, role, and repository. Continue? (y/n): ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "yes" {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	if err := d.Destroy(ctx); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	fmt.Println("\nDestroy complete! All resources have been deleted.")
	return nil
}
