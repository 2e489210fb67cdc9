package deploy

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/docker/docker/api/types/registry"

	"github.com/funcship-io/funcship/internal/logging"
	"github.com/funcship-io/funcship/internal/pipeline"
)

// ensureRepository creates the registry repository only if it does not
// already exist, and records its URI either way.
func (d *Deployer) ensureRepository(ctx context.Context) error {
	out, err := d.clients.ECR.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{d.target.RepositoryName},
	})
	switch {
	case err == nil:
		d.repositoryURI = aws.ToString(out.Repositories[0].RepositoryUri)
		logging.Debug("repository exists", "repository", d.target.RepositoryName, "uri", d.repositoryURI)
		return nil

	case pipeline.IsNotFound(err):
		created, err := d.clients.ECR.CreateRepository(ctx, &ecr.CreateRepositoryInput{
			RepositoryName:     aws.String(d.target.RepositoryName),
			ImageTagMutability: ecrtypes.ImageTagMutabilityMutable,
		})
		if err != nil {
			return fmt.Errorf("failed to create repository: %w", err)
		}
		d.repositoryURI = aws.ToString(created.Repository.RepositoryUri)
		logging.Info("created repository", "repository", d.target.RepositoryName, "uri", d.repositoryURI)
		return nil

	default:
		return fmt.Errorf("failed to describe repository: %w", err)
	}
}

// registryAuth exchanges a registry authorization token for the encoded auth
// payload the engine expects on push.
func (d *Deployer) registryAuth(ctx context.Context) (string, error) {
	out, err := d.clients.ECR.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 {
		return "", fmt.Errorf("registry returned no authorization data")
	}

	data := out.AuthorizationData[0]
	raw, err := base64.StdEncoding.DecodeString(aws.ToString(data.AuthorizationToken))
	if err != nil {
		return "", fmt.Errorf("failed to decode authorization token: %w", err)
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", fmt.Errorf("malformed authorization token")
	}

	return registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      username,
		Password:      password,
		ServerAddress: aws.ToString(data.ProxyEndpoint),
	})
}

// deleteRepository force-deletes the repository; absence is not an error.
func (d *Deployer) deleteRepository(ctx context.Context) error {
	_, err := d.clients.ECR.DeleteRepository(ctx, &ecr.DeleteRepositoryInput{
		RepositoryName: aws.String(d.target.RepositoryName),
		Force:          true,
	})
	if err != nil && !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	return nil
}
