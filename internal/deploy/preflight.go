package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Check is the result of one precondition check.
type Check struct {
	Name string
	Err  error
}

// Checks verifies the workflow's preconditions: the container engine daemon
// is reachable, the AWS credential chain resolves to an identity, and the
// build context is present on disk. These are configuration errors when they
// fail, so there are no retries.
func (d *Deployer) Checks(ctx context.Context) []Check {
	var checks []Check

	_, err := d.clients.Docker.Ping(ctx)
	if err != nil {
		err = fmt.Errorf("container engine daemon unreachable: %w", err)
	}
	checks = append(checks, Check{Name: "container engine", Err: err})

	_, err = d.clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		err = fmt.Errorf("credentials did not resolve: %w", err)
	}
	checks = append(checks, Check{Name: "cloud credentials", Err: err})

	if _, err = os.Stat(d.target.BuildContext); err != nil {
		err = fmt.Errorf("build context: %w", err)
	}
	checks = append(checks, Check{Name: "build context", Err: err})

	dockerfile := filepath.Join(d.target.BuildContext, d.target.Dockerfile)
	if _, err = os.Stat(dockerfile); err != nil {
		err = fmt.Errorf("dockerfile: %w", err)
	}
	checks = append(checks, Check{Name: "dockerfile", Err: err})

	return checks
}

// preflight fails the workflow on the first unmet precondition.
func (d *Deployer) preflight(ctx context.Context) error {
	for _, c := range d.Checks(ctx) {
		if c.Err != nil {
			return c.Err
		}
	}
	return nil
}
