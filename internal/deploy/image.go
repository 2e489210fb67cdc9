package deploy

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/funcship-io/funcship/internal/logging"
	"github.com/funcship-io/funcship/internal/pipeline"
)

// buildImage removes any stale local image under the target tag, then builds
// a fresh one pinned to the target platform. The platform is always explicit
// so a developer host with a different CPU never leaks its default
// architecture into the artifact.
func (d *Deployer) buildImage(ctx context.Context) error {
	local := d.target.LocalImage()

	// Best-effort stale removal: only absence is tolerated, any other
	// engine error propagates.
	if _, err := d.clients.Docker.ImageRemove(ctx, local, image.RemoveOptions{Force: true}); err != nil && !pipeline.IsNotFound(err) {
		return fmt.Errorf("failed to remove stale image: %w", err)
	}

	tar, err := archive.TarWithOptions(d.target.BuildContext, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to create build context tar: %w", err)
	}
	defer tar.Close()

	resp, err := d.clients.Docker.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       []string{local},
		Dockerfile: d.target.Dockerfile,
		Platform:   d.target.Platform(),
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	if err := d.drainEngineStream(resp.Body); err != nil {
		return fmt.Errorf("image build failed: %w", err)
	}
	logging.Info("built image", "image", local, "platform", d.target.Platform())
	return nil
}

// verifyArchitecture is the gate between build and push: the built image's
// architecture metadata must match the execution target, otherwise the whole
// workflow aborts before anything is published.
func (d *Deployer) verifyArchitecture(ctx context.Context) error {
	inspect, _, err := d.clients.Docker.ImageInspectWithRaw(ctx, d.target.LocalImage())
	if err != nil {
		return fmt.Errorf("failed to inspect built image: %w", err)
	}
	if inspect.Architecture != d.target.Architecture {
		return fmt.Errorf("built image architecture is %q but the execution target requires %q; refusing to push", inspect.Architecture, d.target.Architecture)
	}
	return nil
}

// pushImage tags the verified image for the remote repository and pushes it.
func (d *Deployer) pushImage(ctx context.Context) error {
	remote := d.repositoryURI + ":" + d.target.ImageTag

	if err := d.clients.Docker.ImageTag(ctx, d.target.LocalImage(), remote); err != nil {
		return fmt.Errorf("failed to tag image: %w", err)
	}

	auth, err := d.registryAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve registry auth: %w", err)
	}

	rc, err := d.clients.Docker.ImagePush(ctx, remote, image.PushOptions{RegistryAuth: auth})
	if err != nil {
		return fmt.Errorf("failed to push image: %w", err)
	}
	defer rc.Close()

	if err := d.drainEngineStream(rc); err != nil {
		return fmt.Errorf("image push failed: %w", err)
	}

	d.imageURI = remote
	logging.Info("pushed image", "image", remote)
	return nil
}

// drainEngineStream decodes an engine progress stream, surfacing any error
// record embedded in it. Build and push failures arrive as stream records
// with a zero top-level error, so draining is not optional.
func (d *Deployer) drainEngineStream(r io.Reader) error {
	return jsonmessage.DisplayJSONMessagesStream(r, d.out, 0, false, nil)
}
