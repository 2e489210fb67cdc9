package deploy

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/funcship-io/funcship/internal/logging"
	"github.com/funcship-io/funcship/internal/pipeline"
)

// lambdaTrustPolicy lets the function service assume the execution role.
const lambdaTrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"Service": "lambda.amazonaws.com"},
      "Action": "sts:AssumeRole"
    }
  ]
}`

// basicExecutionPolicyARN grants log delivery, the minimum a function needs.
const basicExecutionPolicyARN = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"

// ensureRole creates the execution role with the function trust policy only
// if it does not already exist, and records the role ARN either way. A newly
// created role is not immediately assumable everywhere; the function-create
// stage absorbs that propagation delay with bounded retries rather than a
// fixed sleep here.
func (d *Deployer) ensureRole(ctx context.Context) error {
	out, err := d.clients.IAM.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(d.target.RoleName),
	})
	if err == nil {
		d.roleARN = aws.ToString(out.Role.Arn)
		logging.Debug("execution role exists", "role", d.target.RoleName, "arn", d.roleARN)
		return nil
	}
	if !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to get role: %w", err)
	}

	created, err := d.clients.IAM.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(d.target.RoleName),
		AssumeRolePolicyDocument: aws.String(lambdaTrustPolicy),
		Description:              aws.String("Execution role for " + d.target.FunctionName),
	})
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	if _, err := d.clients.IAM.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(d.target.RoleName),
		PolicyArn: aws.String(basicExecutionPolicyARN),
	}); err != nil {
		return fmt.Errorf("failed to attach execution policy: %w", err)
	}

	d.roleARN = aws.ToString(created.Role.Arn)
	logging.Info("created execution role", "role", d.target.RoleName, "arn", d.roleARN)
	return nil
}

// deleteRole detaches the managed policy and deletes the role; absence of
// either is not an error.
func (d *Deployer) deleteRole(ctx context.Context) error {
	_, err := d.clients.IAM.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(d.target.RoleName),
		PolicyArn: aws.String(basicExecutionPolicyARN),
	})
	if err != nil && !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to detach execution policy: %w", err)
	}

	_, err = d.clients.IAM.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(d.target.RoleName),
	})
	if err != nil && !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}
