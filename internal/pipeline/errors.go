package pipeline

import (
	"errors"
	"strings"

	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/docker/docker/client"
)

// IsNotFound reports whether err means the queried remote resource does not
// exist. Resource absence is an expected branch of every reconcile stage,
// not a failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var repoNotFound *ecrtypes.RepositoryNotFoundException
	if errors.As(err, &repoNotFound) {
		return true
	}
	var noEntity *iamtypes.NoSuchEntityException
	if errors.As(err, &noEntity) {
		return true
	}
	var fnNotFound *lambdatypes.ResourceNotFoundException
	if errors.As(err, &fnNotFound) {
		return true
	}
	if client.IsErrNotFound(err) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFoundException"
}

// IsAlreadyExists reports whether err means the resource (or a policy
// statement) is already in the desired state. Reapplying is a success path.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	var repoExists *ecrtypes.RepositoryAlreadyExistsException
	if errors.As(err, &repoExists) {
		return true
	}
	var entityExists *iamtypes.EntityAlreadyExistsException
	if errors.As(err, &entityExists) {
		return true
	}
	var conflict *lambdatypes.ResourceConflictException
	return errors.As(err, &conflict)
}

// IsRoleNotPropagated reports whether err is the identity-service
// eventual-consistency rejection raised when a function references a role
// that was created moments ago. The condition clears on its own; callers
// retry with bounded backoff instead of sleeping a fixed interval.
func IsRoleNotPropagated(err error) bool {
	var invalid *lambdatypes.InvalidParameterValueException
	if !errors.As(err, &invalid) {
		return false
	}
	return strings.Contains(strings.ToLower(invalid.ErrorMessage()), "assume")
}

// IsUpdateInProgress reports whether err means a previous function update has
// not settled yet. The function service serializes updates; the caller waits
// and retries.
func IsUpdateInProgress(err error) bool {
	var conflict *lambdatypes.ResourceConflictException
	return errors.As(err, &conflict)
}
