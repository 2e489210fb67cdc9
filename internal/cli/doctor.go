package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the workflow's prerequisites and report each one",
	Long: `Runs only the precondition checks: the container engine daemon, the cloud
credential chain, and the build context on disk. Unlike deploy, every check
is reported even after the first failure.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := newDeployer(ctx, nil)
	if err != nil {
		return err
	}

	failed := 0
	for _, check := range d.Checks(ctx) {
		if check.Err != nil {
			fmt.Printf("  ✗ %s: %v\n", check.Name, check.Err)
			failed++
			continue
		}
		fmt.Printf("  ✓ %s\n", check.Name)
	}

	if failed > 0 {
		return fmt.Errorf("%d precondition(s) unmet", failed)
	}
	fmt.Println("\nAll preconditions met.")
	return nil
}
