package deploy

import (
	"context"

	"github.com/funcship-io/funcship/internal/pipeline"
)

// Destroy tears down everything the deploy pipeline creates, in reverse
// order: endpoint, function, role, repository. Every step tolerates the
// resource being gone already, so a partially torn-down target can be
// destroyed again.
func (d *Deployer) Destroy(ctx context.Context) error {
	stages := []pipeline.Stage{
		{Name: "remove public endpoint", Run: d.removeEndpoint},
		{Name: "delete function", Run: d.deleteFunction},
		{Name: "delete execution role", Run: d.deleteRole},
		{Name: "delete repository", Run: d.deleteRepository},
	}
	return pipeline.Run(ctx, stages, d.Hooks)
}
