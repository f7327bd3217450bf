package otu

import (
	"context"

	"github.com/grailbio/base/traverse"
)

// Tools dispatches each pipeline operation to the implementation selected by
// the run's Mode: the accelerator, the clustering engine, or the in-process
// rendition.
type Tools struct {
	runner Runner
	// accel is nil in Fallback mode.
	accel  Backend
	engine Backend
}

// NewTools returns the tool set for env. threads is forwarded to the
// backends.
func NewTools(env Environment, runner Runner, threads int) *Tools {
	t := &Tools{runner: runner, engine: NewUsearch(env.Usearch, threads)}
	if env.Mode == Accelerated {
		t.accel = NewVsearch(env.Vsearch, threads)
	}
	return t
}

func (t *Tools) run(ctx context.Context, b Backend, op Op) error {
	c, err := b.Render(op)
	if err != nil {
		return err
	}
	return t.runner.Run(ctx, c)
}

// delegate returns the backend for operations the accelerator handles when
// present.
func (t *Tools) delegate() Backend {
	if t.accel != nil {
		return t.accel
	}
	return t.engine
}

// Filter runs quality filtering and the unfiltered FASTA conversion. The two
// are independent and run concurrently.
func (t *Tools) Filter(ctx context.Context, filter FilterCmd, convert ConvertCmd) error {
	if t.accel == nil {
		return filterNative(ctx, filter, convert)
	}
	ops := []Op{filter, convert}
	return traverse.Each(len(ops), func(i int) error {
		return t.run(ctx, t.accel, ops[i])
	})
}

// Derep runs full-length dereplication.
func (t *Tools) Derep(ctx context.Context, c DerepCmd) error {
	if t.accel == nil {
		_, err := dereplicate(ctx, c)
		return err
	}
	return t.run(ctx, t.accel, c)
}

// Denoise runs the engine's denoising clustering.
func (t *Tools) Denoise(ctx context.Context, c DenoiseCmd) error { return t.run(ctx, t.engine, c) }

// Sort runs the engine's abundance sort.
func (t *Tools) Sort(ctx context.Context, c SortCmd) error { return t.run(ctx, t.engine, c) }

// Cluster runs the engine's OTU clustering.
func (t *Tools) Cluster(ctx context.Context, c ClusterCmd) error { return t.run(ctx, t.engine, c) }

// Chimera runs reference chimera filtering.
func (t *Tools) Chimera(ctx context.Context, c ChimeraCmd) error {
	return t.run(ctx, t.delegate(), c)
}

// Map maps reads to OTUs.
func (t *Tools) Map(ctx context.Context, c MapCmd) error { return t.run(ctx, t.delegate(), c) }

// ChimeraEngine names the tool family that performs chimera filtering.
func (t *Tools) ChimeraEngine() string {
	if t.accel != nil {
		return "VSEARCH"
	}
	return "UCHIME"
}
