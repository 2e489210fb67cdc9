package deploy

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/funcship-io/funcship/internal/logging"
	"github.com/funcship-io/funcship/internal/pipeline"
)

// The runtime interface emulator inside function base images listens on
// 8080; one invocation POST against this path exercises the handler.
const (
	emulatorPort         = "8080"
	defaultSmokeHostPort = "9000"
	invocationsPath      = "/2015-03-31/functions/function/invocations"
)

// smokeInvokePolicy bounds the wait for the emulator to come up.
func smokeInvokePolicy() *pipeline.RetryPolicy {
	return &pipeline.RetryPolicy{
		MaxRetries: 6,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// SmokeRun builds the image, starts it locally behind the runtime interface
// emulator port mapping, issues one empty invocation against it, and reports
// the HTTP status. The container is stopped and removed on the way out.
// Running a cross-architecture image requires engine emulation support.
func (d *Deployer) SmokeRun(ctx context.Context) (int, error) {
	if err := d.preflight(ctx); err != nil {
		return 0, err
	}
	if err := d.buildImage(ctx); err != nil {
		return 0, err
	}
	if err := d.verifyArchitecture(ctx); err != nil {
		return 0, err
	}

	port := nat.Port(emulatorPort + "/tcp")
	resp, err := d.clients.Docker.ContainerCreate(ctx,
		&container.Config{
			Image:        d.target.LocalImage(),
			ExposedPorts: nat.PortSet{port: struct{}{}},
		},
		&container.HostConfig{
			PortBindings: nat.PortMap{port: []nat.PortBinding{{
				HostIP:   "127.0.0.1",
				HostPort: d.smokeHostPort,
			}}},
		},
		&network.NetworkingConfig{},
		&ocispec.Platform{OS: "linux", Architecture: d.target.Architecture},
		d.target.FunctionName+"-smoke",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create smoke container: %w", err)
	}
	defer func() {
		timeout := 5 // seconds
		_ = d.clients.Docker.ContainerStop(ctx, resp.ID, container.StopOptions{Timeout: &timeout})
		_ = d.clients.Docker.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
	}()

	if err := d.clients.Docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return 0, fmt.Errorf("failed to start smoke container: %w", err)
	}

	status, err := d.invokeLocal(ctx)
	if err != nil {
		return 0, err
	}
	logging.Info("smoke invocation complete", "status", status)
	return status, nil
}

// invokeLocal POSTs one empty invocation to the emulator, retrying while the
// container is still coming up.
func (d *Deployer) invokeLocal(ctx context.Context) (int, error) {
	url := "http://127.0.0.1:" + d.smokeHostPort + invocationsPath
	httpClient := &http.Client{Timeout: 10 * time.Second}

	var status int
	err := pipeline.RetryWithBackoff(ctx, d.smokePolicy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		status = resp.StatusCode
		return nil
	}, func(err error) bool {
		// Connection errors while the emulator boots are the retry case.
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("local invocation failed: %w", err)
	}
	return status, nil
}
