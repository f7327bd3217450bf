package otu

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Stage is one step of the pipeline. Inputs must exist before Run is
// called; Outputs must exist once it returns.
type Stage struct {
	Name    string
	Inputs  []string
	Outputs []string
	Run     func(ctx context.Context) error
}

// runStages runs stages in order, stopping at the first failure. Every
// produced artifact is recorded in m.
func runStages(ctx context.Context, stages []Stage, m *manifest) error {
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, in := range s.Inputs {
			if !exists(in) {
				return errors.E(errors.NotExist, fmt.Sprintf("stage %s: missing input %s", s.Name, filepath.Base(in)))
			}
		}
		log.Debug.Printf("stage %s", s.Name)
		if err := s.Run(ctx); err != nil {
			return errors.E(err, "stage", s.Name)
		}
		for _, out := range s.Outputs {
			if !exists(out) {
				return errors.E(errors.Invalid, fmt.Sprintf("stage %s: expected output %s was not produced", s.Name, filepath.Base(out)))
			}
		}
		if err := m.add(ctx, s.Name, s.Outputs); err != nil {
			return err
		}
	}
	return nil
}
