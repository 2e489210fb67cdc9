// Package pipeline runs the deployment workflow as a fixed, fail-fast
// sequence of named stages and classifies the cloud and engine errors the
// stages have to make decisions on.
package pipeline

import (
	"context"
	"fmt"

	"github.com/funcship-io/funcship/internal/logging"
)

// Stage is one named step of the workflow.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Hooks receives progress notifications while a pipeline runs. Either field
// may be nil.
type Hooks struct {
	Start func(name string)
	Done  func(name string, err error)
}

// Run executes stages strictly in order and stops at the first failure.
// There is no parallelism and no recovery; a failed stage aborts the whole
// workflow with the stage name wrapped into the error.
func Run(ctx context.Context, stages []Stage, hooks Hooks) error {
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if hooks.Start != nil {
			hooks.Start(s.Name)
		}
		logging.Debug("stage starting", "stage", s.Name)
		err := s.Run(ctx)
		if hooks.Done != nil {
			hooks.Done(s.Name, err)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		logging.Debug("stage complete", "stage", s.Name)
	}
	return nil
}
