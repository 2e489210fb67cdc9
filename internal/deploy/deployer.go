// Package deploy drives a containerized function deployment toward its
// target state: registry repository, execution role, platform-pinned image,
// the function itself, and its public endpoint. Every resource-creating
// stage looks the resource up first and no-ops (or updates) when it already
// exists, so repeated runs are safe.
package deploy

import (
	"context"
	"io"

	"github.com/funcship-io/funcship/internal/config"
	"github.com/funcship-io/funcship/internal/pipeline"
)

// Deployer runs the reconciliation pipeline against one immutable target.
type Deployer struct {
	target  config.Target
	clients *Clients

	// Hooks receives per-stage progress notifications.
	Hooks pipeline.Hooks

	// out receives the engine's build and push streams.
	out io.Writer

	// Retry policies for the eventual-consistency waits. Defaults are set
	// in New.
	rolePolicy   *pipeline.RetryPolicy
	updatePolicy *pipeline.RetryPolicy
	smokePolicy  *pipeline.RetryPolicy

	// smokeHostPort is the host port the local smoke container binds.
	smokeHostPort string

	// Resolved along the way; later stages read what earlier stages wrote.
	accountID     string
	repositoryURI string
	roleARN       string
	imageURI      string
	functionARN   string
	endpointURL   string

	functionCreated bool
}

// Outcome reports what a successful run converged on.
type Outcome struct {
	AccountID     string
	RepositoryURI string
	RoleARN       string
	ImageURI      string
	FunctionARN   string
	EndpointURL   string

	// FunctionCreated is true when this run created the function rather
	// than updating an existing one.
	FunctionCreated bool
}

// New returns a Deployer for the given target. The engine's build and push
// output is streamed to out; pass nil to discard it.
func New(target config.Target, clients *Clients, out io.Writer) *Deployer {
	if out == nil {
		out = io.Discard
	}
	return &Deployer{
		target:        target,
		clients:       clients,
		out:           out,
		rolePolicy:    pipeline.RolePropagationPolicy(),
		updatePolicy:  pipeline.UpdateSettlePolicy(),
		smokePolicy:   smokeInvokePolicy(),
		smokeHostPort: defaultSmokeHostPort,
	}
}

// Run executes the full deployment pipeline and returns the converged state.
// The stage order is fixed: the architecture gate sits between build and
// push, and nothing is pushed or deployed once it fails.
func (d *Deployer) Run(ctx context.Context) (*Outcome, error) {
	stages := []pipeline.Stage{
		{Name: "check prerequisites", Run: d.preflight},
		{Name: "resolve identity", Run: d.resolveIdentity},
		{Name: "ensure repository", Run: d.ensureRepository},
		{Name: "ensure execution role", Run: d.ensureRole},
		{Name: "build image", Run: d.buildImage},
		{Name: "verify architecture", Run: d.verifyArchitecture},
		{Name: "push image", Run: d.pushImage},
		{Name: "deploy function", Run: d.deployFunction},
		{Name: "expose endpoint", Run: d.exposeEndpoint},
	}

	if err := pipeline.Run(ctx, stages, d.Hooks); err != nil {
		return nil, err
	}

	return &Outcome{
		AccountID:       d.accountID,
		RepositoryURI:   d.repositoryURI,
		RoleARN:         d.roleARN,
		ImageURI:        d.imageURI,
		FunctionARN:     d.functionARN,
		EndpointURL:     d.endpointURL,
		FunctionCreated: d.functionCreated,
	}, nil
}
