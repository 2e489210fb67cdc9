package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/funcship-io/funcship/internal/config"
	"github.com/funcship-io/funcship/internal/deploy"
	"github.com/funcship-io/funcship/internal/pipeline"
)

// loadTarget resolves the deployment target from defaults, the optional
// config file, and flag overrides, in that order.
func loadTarget() (config.Target, error) {
	target, err := config.Load(configPath)
	if err != nil {
		return target, err
	}
	if flagRegion != "" {
		target.Region = flagRegion
	}
	if flagTag != "" {
		target.ImageTag = flagTag
	}
	if err := target.Validate(); err != nil {
		return target, fmt.Errorf("invalid deployment target: %w", err)
	}
	return target, nil
}

// newDeployer wires a Deployer with real clients and stdout progress hooks.
func newDeployer(ctx context.Context, buildOutput io.Writer) (*deploy.Deployer, error) {
	target, err := loadTarget()
	if err != nil {
		return nil, err
	}
	clients, err := deploy.NewClients(ctx, target.Region)
	if err != nil {
		return nil, err
	}
	d := deploy.New(target, clients, buildOutput)
	d.Hooks = progressHooks()
	return d, nil
}

// progressHooks prints one line per pipeline stage.
func progressHooks() pipeline.Hooks {
	return pipeline.Hooks{
		Start: func(name string) {
			fmt.Fprintf(os.Stdout, "%s... ", name)
		},
		Done: func(name string, err error) {
			if err != nil {
				fmt.Fprintln(os.Stdout, "FAILED")
				return
			}
			fmt.Fprintln(os.Stdout, "OK")
		},
	}
}
