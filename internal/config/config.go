package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Supported image architectures. Lambda runs either x86_64 or Graviton; the
// build is always pinned to one of these, never to the host default.
const (
	ArchAMD64 = "amd64"
	ArchARM64 = "arm64"
)

// Target is the immutable deployment target. It is resolved once at process
// start (defaults, optional TOML file, then flags) and handed read-only to
// every pipeline stage.
type Target struct {
	Region         string `toml:"region"`
	RepositoryName string `toml:"repository"`
	FunctionName   string `toml:"function"`
	RoleName       string `toml:"role"`
	ImageTag       string `toml:"tag"`
	Architecture   string `toml:"architecture"`
	MemorySize     int32  `toml:"memory_mb"`
	TimeoutSeconds int32  `toml:"timeout_seconds"`
	BuildContext   string `toml:"build_context"`
	Dockerfile     string `toml:"dockerfile"`

	CORSAllowOrigins  []string `toml:"cors_allow_origins"`
	CORSAllowMethods  []string `toml:"cors_allow_methods"`
	CORSAllowHeaders  []string `toml:"cors_allow_headers"`
	CORSMaxAgeSeconds int32    `toml:"cors_max_age_seconds"`

	// StatementID names the resource-policy statement granting public
	// invocation. Reapplying a statement under the same ID is idempotent.
	StatementID string `toml:"statement_id"`
}

// Default returns the built-in deployment target.
func Default() Target {
	return Target{
		Region:         "us-east-1",
		RepositoryName: "mcp-lambda-server",
		FunctionName:   "mcp-lambda-server",
		RoleName:       "mcp-lambda-server-role",
		ImageTag:       "latest",
		Architecture:   ArchAMD64,
		MemorySize:     512,
		TimeoutSeconds: 60,
		BuildContext:   ".",
		Dockerfile:     "Dockerfile",

		CORSAllowOrigins:  []string{"*"},
		CORSAllowMethods:  []string{"GET", "POST", "OPTIONS"},
		CORSAllowHeaders:  []string{"content-type", "authorization"},
		CORSMaxAgeSeconds: 86400,

		StatementID: "funcship-public-url",
	}
}

// Load resolves a target from the defaults overlaid with the TOML file at
// path. An empty path returns the defaults unchanged.
func Load(path string) (Target, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	if _, err := os.Stat(path); err != nil {
		return t, fmt.Errorf("config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return t, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return t, nil
}

// Validate checks the target for values the pipeline cannot work with.
func (t Target) Validate() error {
	if t.Region == "" {
		return fmt.Errorf("region must not be empty")
	}
	if t.RepositoryName == "" {
		return fmt.Errorf("repository name must not be empty")
	}
	if t.FunctionName == "" {
		return fmt.Errorf("function name must not be empty")
	}
	if t.RoleName == "" {
		return fmt.Errorf("role name must not be empty")
	}
	if t.ImageTag == "" {
		return fmt.Errorf("image tag must not be empty")
	}
	if t.Architecture != ArchAMD64 && t.Architecture != ArchARM64 {
		return fmt.Errorf("unsupported architecture %q (want %s or %s)", t.Architecture, ArchAMD64, ArchARM64)
	}
	if t.MemorySize < 128 || t.MemorySize > 10240 {
		return fmt.Errorf("memory size %d MB out of range [128, 10240]", t.MemorySize)
	}
	if t.TimeoutSeconds < 1 || t.TimeoutSeconds > 900 {
		return fmt.Errorf("timeout %d s out of range [1, 900]", t.TimeoutSeconds)
	}
	return nil
}

// Platform returns the pinned build platform in engine notation.
func (t Target) Platform() string {
	return "linux/" + t.Architecture
}

// LocalImage returns the image reference used in the local build cache.
func (t Target) LocalImage() string {
	return t.RepositoryName + ":" + t.ImageTag
}
