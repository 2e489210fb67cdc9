package deploy

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/funcship-io/funcship/internal/logging"
)

// resolveIdentity resolves the caller's account from the identity service.
// An empty account means the credentials are unusable, which is fatal.
func (d *Deployer) resolveIdentity(ctx context.Context) error {
	out, err := d.clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	account := aws.ToString(out.Account)
	if account == "" {
		return fmt.Errorf("identity service returned an empty account id")
	}

	d.accountID = account
	logging.Debug("resolved caller identity", "account", account, "caller", aws.ToString(out.Arn))
	return nil
}
