package deploy

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/funcship-io/funcship/internal/config"
	"github.com/funcship-io/funcship/internal/logging"
	"github.com/funcship-io/funcship/internal/pipeline"
)

// deployFunction converges the function on the desired image and resource
// limits. Absent means create with the full definition; present means update the
// code, then the configuration. The existence check decides which, and the
// create path is never taken for a function that already exists.
func (d *Deployer) deployFunction(ctx context.Context) error {
	_, err := d.clients.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(d.target.FunctionName),
	})
	switch {
	case err == nil:
		return d.updateFunction(ctx)
	case pipeline.IsNotFound(err):
		return d.createFunction(ctx)
	default:
		return fmt.Errorf("failed to get function: %w", err)
	}
}

// createFunction creates the function from the pushed image and the resolved
// role. A role created moments ago may not be assumable yet; that rejection
// is retried with bounded backoff until propagation settles.
func (d *Deployer) createFunction(ctx context.Context) error {
	input := &lambda.CreateFunctionInput{
		FunctionName:  aws.String(d.target.FunctionName),
		Role:          aws.String(d.roleARN),
		PackageType:   lambdatypes.PackageTypeImage,
		Code:          &lambdatypes.FunctionCode{ImageUri: aws.String(d.imageURI)},
		Architectures: []lambdatypes.Architecture{d.lambdaArchitecture()},
		MemorySize:    aws.Int32(d.target.MemorySize),
		Timeout:       aws.Int32(d.target.TimeoutSeconds),
	}

	err := pipeline.RetryWithBackoff(ctx, d.rolePolicy, func() error {
		out, err := d.clients.Lambda.CreateFunction(ctx, input)
		if err != nil {
			return err
		}
		d.functionARN = aws.ToString(out.FunctionArn)
		return nil
	}, pipeline.IsRoleNotPropagated)
	if err != nil {
		return fmt.Errorf("failed to create function: %w", err)
	}

	d.functionCreated = true
	logging.Info("created function", "function", d.target.FunctionName, "arn", d.functionARN)
	return nil
}

// updateFunction points the existing function at the pushed image, then
// applies the desired configuration. The function service serializes
// updates, so each call waits out an in-progress predecessor. A failure
// between the two calls aborts fail-fast; the next run converges the
// configuration.
func (d *Deployer) updateFunction(ctx context.Context) error {
	err := pipeline.RetryWithBackoff(ctx, d.updatePolicy, func() error {
		out, err := d.clients.Lambda.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
			FunctionName: aws.String(d.target.FunctionName),
			ImageUri:     aws.String(d.imageURI),
		})
		if err != nil {
			return err
		}
		d.functionARN = aws.ToString(out.FunctionArn)
		return nil
	}, pipeline.IsUpdateInProgress)
	if err != nil {
		return fmt.Errorf("failed to update function code: %w", err)
	}

	err = pipeline.RetryWithBackoff(ctx, d.updatePolicy, func() error {
		_, err := d.clients.Lambda.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
			FunctionName: aws.String(d.target.FunctionName),
			Role:         aws.String(d.roleARN),
			MemorySize:   aws.Int32(d.target.MemorySize),
			Timeout:      aws.Int32(d.target.TimeoutSeconds),
		})
		return err
	}, pipeline.IsUpdateInProgress)
	if err != nil {
		return fmt.Errorf("failed to update function configuration: %w", err)
	}

	logging.Info("updated function", "function", d.target.FunctionName, "image", d.imageURI)
	return nil
}

// deleteFunction removes the function; absence is not an error.
func (d *Deployer) deleteFunction(ctx context.Context) error {
	_, err := d.clients.Lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(d.target.FunctionName),
	})
	if err != nil && !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to delete function: %w", err)
	}
	return nil
}

func (d *Deployer) lambdaArchitecture() lambdatypes.Architecture {
	if d.target.Architecture == config.ArchARM64 {
		return lambdatypes.ArchitectureArm64
	}
	return lambdatypes.ArchitectureX8664
}
