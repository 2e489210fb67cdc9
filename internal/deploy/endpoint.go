package deploy

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/funcship-io/funcship/internal/logging"
	"github.com/funcship-io/funcship/internal/pipeline"
)

// exposeEndpoint ensures the public URL configuration exists and then
// unconditionally reapplies the unauthenticated-invoke policy. Both halves
// are idempotent, so the stage is safe to run on every deploy.
func (d *Deployer) exposeEndpoint(ctx context.Context) error {
	if err := d.ensureFunctionURL(ctx); err != nil {
		return err
	}
	return d.ensurePublicInvoke(ctx)
}

// ensureFunctionURL looks up the existing URL configuration and creates one
// with the fixed access policy and cross-origin rules only when absent.
func (d *Deployer) ensureFunctionURL(ctx context.Context) error {
	out, err := d.clients.Lambda.GetFunctionUrlConfig(ctx, &lambda.GetFunctionUrlConfigInput{
		FunctionName: aws.String(d.target.FunctionName),
	})
	if err == nil {
		d.endpointURL = aws.ToString(out.FunctionUrl)
		logging.Debug("function url exists", "url", d.endpointURL)
		return nil
	}
	if !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to get function url config: %w", err)
	}

	created, err := d.clients.Lambda.CreateFunctionUrlConfig(ctx, &lambda.CreateFunctionUrlConfigInput{
		FunctionName: aws.String(d.target.FunctionName),
		AuthType:     lambdatypes.FunctionUrlAuthTypeNone,
		Cors: &lambdatypes.Cors{
			AllowOrigins: d.target.CORSAllowOrigins,
			AllowMethods: d.target.CORSAllowMethods,
			AllowHeaders: d.target.CORSAllowHeaders,
			MaxAge:       aws.Int32(d.target.CORSMaxAgeSeconds),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create function url config: %w", err)
	}

	d.endpointURL = aws.ToString(created.FunctionUrl)
	logging.Info("created function url", "url", d.endpointURL)
	return nil
}

// ensurePublicInvoke grants unauthenticated invocation through the URL. The
// statement ID is fixed, so "already exists" means the grant is in place and
// counts as success.
func (d *Deployer) ensurePublicInvoke(ctx context.Context) error {
	_, err := d.clients.Lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName:        aws.String(d.target.FunctionName),
		StatementId:         aws.String(d.target.StatementID),
		Action:              aws.String("lambda:InvokeFunctionUrl"),
		Principal:           aws.String("*"),
		FunctionUrlAuthType: lambdatypes.FunctionUrlAuthTypeNone,
	})
	if err != nil && !pipeline.IsAlreadyExists(err) {
		return fmt.Errorf("failed to grant public invoke: %w", err)
	}
	return nil
}

// removeEndpoint deletes the invoke grant and the URL configuration;
// absence of either is not an error.
func (d *Deployer) removeEndpoint(ctx context.Context) error {
	_, err := d.clients.Lambda.RemovePermission(ctx, &lambda.RemovePermissionInput{
		FunctionName: aws.String(d.target.FunctionName),
		StatementId:  aws.String(d.target.StatementID),
	})
	if err != nil && !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to remove invoke grant: %w", err)
	}

	_, err = d.clients.Lambda.DeleteFunctionUrlConfig(ctx, &lambda.DeleteFunctionUrlConfigInput{
		FunctionName: aws.String(d.target.FunctionName),
	})
	if err != nil && !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to delete function url config: %w", err)
	}
	return nil
}
