package otu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Fixed parameters of the delegated stages.
const (
	denoiseID       = 0.9
	denoiseMaxDiffs = 5
	denoiseAbSkew   = 10
	mapID           = 0.97
	otuRelabel      = "OTU"
)

// Artifacts names every file a run produces in its temporary directory.
// Names depend only on Opts, so reruns overwrite the same paths.
type Artifacts struct {
	TmpDir      string
	FilterFastq string
	FilterFasta string
	OrigFasta   string
	Derep       string
	Denoised    string
	Sorted      string
	OTUs        string
	CleanOTUs   string
	UchimeOTUs  string
	Mapping     string
	Table       string
}

// NewArtifacts derives the artifact paths of opts.
func NewArtifacts(opts Opts) Artifacts {
	tmp := opts.TmpDir()
	base := filepath.Base(opts.Out)
	tagged := func(tag string) string {
		return filepath.Join(tmp, fmt.Sprintf("%s.EE%s.%s", base, opts.eeTag(), tag))
	}
	return Artifacts{
		TmpDir:      tmp,
		FilterFastq: tagged("filter.fq"),
		FilterFasta: tagged("filter.fa"),
		OrigFasta:   filepath.Join(tmp, base+".orig.fa"),
		Derep:       tagged("derep.fa"),
		Denoised:    tagged("denoised.fa"),
		Sorted:      tagged("sort.fa"),
		OTUs:        tagged("otus.fa"),
		CleanOTUs:   tagged("clean.otus.fa"),
		UchimeOTUs:  tagged("uchime.otus.fa"),
		Mapping:     tagged("mapping.uc"),
		Table:       tagged("otu_table.txt"),
	}
}

// Result reports the counts and outputs of a completed run.
type Result struct {
	Mode       Mode
	RawReads   int
	InputBytes int64
	Filtered   int
	Uniques    int
	// Denoised is 0 unless denoising ran.
	Denoised int
	OTUs     int
	// Chimeras is the number of OTUs removed by chimera filtering.
	Chimeras       int
	ChimeraSkipped bool
	Mapped         int
	// MappedPct is the mapped share of the raw reads, in percent.
	MappedPct float64

	OTUsPath  string
	TablePath string
	// TmpDir is set when the temporary directory was kept.
	TmpDir string
}

// Run executes the clustering pipeline described by opts with the tools of
// env. All external commands go through runner. The two durable outputs are
// written only after every stage succeeds.
func Run(ctx context.Context, opts Opts, env Environment, runner Runner) (Result, error) {
	res := Result{Mode: env.Mode}
	if err := opts.Validate(); err != nil {
		return res, err
	}
	if !isLocal(opts.prefix()) {
		return res, errors.E(errors.Invalid, "output basename must be a local path: "+opts.prefix())
	}
	a := NewArtifacts(opts)
	if err := os.MkdirAll(a.TmpDir, 0755); err != nil {
		return res, errors.E(err, "create", a.TmpDir)
	}
	input := opts.Input
	if !isLocal(input) {
		staged := filepath.Join(a.TmpDir, filepath.Base(input))
		log.Debug.Printf("staging %s to %s", input, staged)
		if err := copyFile(ctx, staged, input); err != nil {
			return res, err
		}
		input = staged
	}

	log.Printf("Loading FASTQ Records")
	var err error
	if res.RawReads, err = countFASTQ(ctx, input); err != nil {
		return res, err
	}
	if res.InputBytes, err = fileSize(ctx, input); err != nil {
		return res, err
	}
	log.Printf("%s reads (%s)", commas(res.RawReads), humanSize(res.InputBytes))

	tools := NewTools(env, runner, opts.Threads)
	stages, finalOTUs := buildStages(opts, a, input, tools, &res)
	m := &manifest{}
	if err := runStages(ctx, stages, m); err != nil {
		return res, err
	}
	if err := m.write(ctx, a.TmpDir); err != nil {
		return res, err
	}

	res.OTUsPath = opts.FinalOTUsPath()
	res.TablePath = opts.FinalTablePath()
	if err := copyFile(ctx, res.OTUsPath, finalOTUs); err != nil {
		return res, err
	}
	if err := copyFile(ctx, res.TablePath, a.Table); err != nil {
		return res, err
	}
	if !opts.Debug {
		if err := os.RemoveAll(a.TmpDir); err != nil {
			return res, errors.E(err, "remove", a.TmpDir)
		}
		return res, nil
	}
	res.TmpDir = a.TmpDir
	if opts.GzipIntermediates {
		for _, s := range stages {
			for _, path := range s.Outputs {
				if err := gzipFile(ctx, path); err != nil {
					return res, err
				}
			}
		}
	}
	return res, nil
}

// buildStages returns the stage list for one run and the path of the OTU
// FASTA that the table is built from. Counts are recorded in res as the
// stages complete.
func buildStages(opts Opts, a Artifacts, input string, tools *Tools, res *Result) ([]Stage, string) {
	filter := FilterCmd{Input: input, MaxEE: opts.MaxEE, FastqOut: a.FilterFastq, FastaOut: a.FilterFasta}
	convert := ConvertCmd{Input: input, FastaOut: a.OrigFasta}
	stages := []Stage{
		{
			Name:    "filter",
			Inputs:  []string{input},
			Outputs: []string{a.FilterFastq, a.FilterFasta, a.OrigFasta},
			Run: func(ctx context.Context) (err error) {
				log.Printf("Quality Filtering, expected errors < %s", opts.eeTag())
				if err = tools.Filter(ctx, filter, convert); err != nil {
					return err
				}
				if res.Filtered, err = countFASTA(ctx, a.FilterFasta); err != nil {
					return err
				}
				log.Printf("%s reads passed", commas(res.Filtered))
				return nil
			},
		},
		{
			Name:    "derep",
			Inputs:  []string{a.FilterFasta},
			Outputs: []string{a.Derep},
			Run: func(ctx context.Context) (err error) {
				log.Printf("De-replication (remove duplicate reads)")
				if err = tools.Derep(ctx, DerepCmd{Input: a.FilterFasta, Output: a.Derep}); err != nil {
					return err
				}
				if res.Uniques, err = countFASTA(ctx, a.Derep); err != nil {
					return err
				}
				log.Printf("%s reads passed", commas(res.Uniques))
				return nil
			},
		},
	}

	sortIn := a.Derep
	if opts.Unoise {
		sortIn = a.Denoised
		stages = append(stages, Stage{
			Name:    "denoise",
			Inputs:  []string{a.Derep},
			Outputs: []string{a.Denoised},
			Run: func(ctx context.Context) (err error) {
				log.Printf("Denoising Data with UNOISE")
				c := DenoiseCmd{Input: a.Derep, Centroids: a.Denoised, ID: denoiseID,
					MaxDiffs: denoiseMaxDiffs, AbSkew: denoiseAbSkew}
				if err = tools.Denoise(ctx, c); err != nil {
					return err
				}
				if res.Denoised, err = countFASTA(ctx, a.Denoised); err != nil {
					return err
				}
				log.Printf("%s reads passed", commas(res.Denoised))
				return nil
			},
		})
	}

	stages = append(stages,
		Stage{
			Name:    "sort",
			Inputs:  []string{sortIn},
			Outputs: []string{a.Sorted},
			Run: func(ctx context.Context) error {
				log.Printf("Clustering OTUs (UPARSE)")
				return tools.Sort(ctx, SortCmd{Input: sortIn, MinSize: opts.MinSize, Output: a.Sorted})
			},
		},
		Stage{
			Name:    "cluster",
			Inputs:  []string{a.Sorted},
			Outputs: []string{a.OTUs},
			Run: func(ctx context.Context) error {
				return tools.Cluster(ctx, ClusterCmd{Input: a.Sorted, RadiusPct: opts.Radius(),
					Relabel: otuRelabel, OTUs: a.OTUs})
			},
		},
		Stage{
			Name:    "padding",
			Inputs:  []string{a.OTUs},
			Outputs: []string{a.CleanOTUs},
			Run: func(ctx context.Context) (err error) {
				log.Printf("Cleaning up padding from OTUs")
				if res.OTUs, err = stripPadding(ctx, a.OTUs, a.CleanOTUs); err != nil {
					return err
				}
				log.Printf("%s OTUs", commas(res.OTUs))
				return nil
			},
		},
	)

	finalOTUs := a.CleanOTUs
	if opts.UchimeRef != "" {
		db, ok := resolveChimeraRef(opts.UchimeRef, opts.DBDir)
		res.ChimeraSkipped = !ok
		if ok {
			finalOTUs = a.UchimeOTUs
			stages = append(stages, Stage{
				Name:    "chimera",
				Inputs:  []string{a.CleanOTUs, db},
				Outputs: []string{a.UchimeOTUs},
				Run: func(ctx context.Context) (err error) {
					log.Printf("Chimera Filtering (%s) using %s DB", tools.ChimeraEngine(), opts.UchimeRef)
					if err = os.Remove(a.UchimeOTUs); err != nil && !os.IsNotExist(err) {
						return errors.E(err, "remove stale", a.UchimeOTUs)
					}
					c := ChimeraCmd{Input: a.CleanOTUs, DB: db, NonChimeras: a.UchimeOTUs, MinDiv: chimeraMinDiv}
					if err = tools.Chimera(ctx, c); err != nil {
						return err
					}
					before := res.OTUs
					if res.OTUs, err = countFASTA(ctx, a.UchimeOTUs); err != nil {
						return err
					}
					if res.OTUs > before {
						return errors.E(errors.Invalid, fmt.Sprintf("chimera filtering produced %d OTUs from %d", res.OTUs, before))
					}
					res.Chimeras = before - res.OTUs
					log.Printf("%s OTUs passed, %s ref chimeras", commas(res.OTUs), commas(res.Chimeras))
					return nil
				},
			})
		}
	}

	reads := a.OrigFasta
	if opts.MapFiltered {
		reads = a.FilterFasta
	}
	stages = append(stages,
		Stage{
			Name:    "map",
			Inputs:  []string{reads, finalOTUs},
			Outputs: []string{a.Mapping},
			Run: func(ctx context.Context) (err error) {
				log.Printf("Mapping Reads to OTUs")
				if err = tools.Map(ctx, MapCmd{Reads: reads, DB: finalOTUs, ID: mapID, UC: a.Mapping}); err != nil {
					return err
				}
				if res.Mapped, err = countMapped(ctx, a.Mapping); err != nil {
					return err
				}
				res.MappedPct = mappedPercent(res.Mapped, res.RawReads)
				log.Printf("%s reads mapped to OTUs (%.0f%%)", commas(res.Mapped), res.MappedPct)
				return nil
			},
		},
		Stage{
			Name:    "table",
			Inputs:  []string{a.Mapping, finalOTUs},
			Outputs: []string{a.Table},
			Run: func(ctx context.Context) error {
				log.Printf("Creating OTU Table")
				return BuildTable(ctx, a.Mapping, finalOTUs, a.Table)
			},
		},
	)
	return stages, finalOTUs
}
